package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`orders`", QuoteIdentifier("orders"))
}

func TestQuoteIdentifierEscapesBacktick(t *testing.T) {
	assert.Equal(t, "`weird``name`", QuoteIdentifier("weird`name"))
}

func TestQuoteQualified(t *testing.T) {
	assert.Equal(t, "`shop`.`orders`", QuoteQualified("shop", "orders"))
}

func TestQuoteQualifiedNoSchema(t *testing.T) {
	assert.Equal(t, "`orders`", QuoteQualified("", "orders"))
}

func TestQuoteString(t *testing.T) {
	assert.Equal(t, `'it''s'`, QuoteString(`it's`))
}

func TestFormatDefaultValueKeyword(t *testing.T) {
	assert.Equal(t, "CURRENT_TIMESTAMP", FormatDefaultValue("current_timestamp"))
}

func TestFormatDefaultValueNumeric(t *testing.T) {
	assert.Equal(t, "42", FormatDefaultValue("42"))
}

func TestFormatDefaultValueFunctionCall(t *testing.T) {
	assert.Equal(t, "uuid()", FormatDefaultValue("uuid()"))
}

func TestFormatDefaultValueQuotesString(t *testing.T) {
	assert.Equal(t, "'pending'", FormatDefaultValue("pending"))
}

func TestFormatDefaultValueEmpty(t *testing.T) {
	assert.Equal(t, "''", FormatDefaultValue(""))
}
