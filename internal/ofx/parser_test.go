package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/house-money/internal/common"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>021000021
<ACCTID>55500012345
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>POS
<DTPOSTED>20240105120000[0:GMT]
<TRNAMT>-4.50
<FITID>CAFE0105
<NAME>CORNER CAFE #88
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240107120000[0:GMT]
<TRNAMT>2500.00
<FITID>PAY0107
<NAME>ACME CORP PAYROLL
<MEMO>Direct deposit
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-1500.00
<FITID>CHK1042
<CHECKNUM>1042
<NAME>CHECK #1042
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>3120.44
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4000123412349876
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240112120000[0:GMT]
<TRNAMT>-86.21
<FITID>CC0112
<NAME>GREEN VALLEY GROCERY
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240118120000[0:GMT]
<TRNAMT>-64.00
<FITID>CC0118
<NAME>CITY WATER UTILITY
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-150.21
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 3,
		},
		{
			name:          "valid credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 2,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := NewParser().ParseFile(context.Background(), strings.NewReader(tt.ofxData))

			if tt.expectedError {
				require.ErrorIs(t, err, common.ErrMalformedInput)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rows, tt.expectedCount)
		})
	}
}

func TestParseFile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().ParseFile(ctx, strings.NewReader(sampleBankOFX))
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseBankTransactions(t *testing.T) {
	rows, err := NewParser().ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	cafe := rows[0]
	assert.Equal(t, "CORNER CAFE #88", cafe.Description)
	assert.True(t, decimal.RequireFromString("-4.50").Equal(cafe.Amount), "got %s", cafe.Amount)
	assert.Equal(t, "CAFE0105", cafe.Extra["FITID"])
	assert.Equal(t, "POS", cafe.Extra["Type"])
	assert.Equal(t, "Account ...2345", cafe.Notes)
	assert.Equal(t, 2024, cafe.Date.Year())
	assert.Equal(t, time.January, cafe.Date.Month())
	assert.Equal(t, 5, cafe.Date.Day())

	// Credits stay positive.
	pay := rows[1]
	assert.Equal(t, "ACME CORP PAYROLL", pay.Description)
	assert.True(t, decimal.RequireFromString("2500").Equal(pay.Amount))
	assert.Equal(t, "CREDIT", pay.Extra["Type"])

	check := rows[2]
	assert.Equal(t, "CHECK #1042", check.Description)
	assert.Equal(t, "1042", check.Extra["Check Number"])
	assert.True(t, decimal.RequireFromString("-1500").Equal(check.Amount))
}

func TestParseCreditCardTransactions(t *testing.T) {
	rows, err := NewParser().ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "GREEN VALLEY GROCERY", rows[0].Description)
	assert.True(t, decimal.RequireFromString("-86.21").Equal(rows[0].Amount))
	assert.Equal(t, "Account ...9876", rows[0].Notes)

	assert.Equal(t, "CITY WATER UTILITY", rows[1].Description)
	assert.True(t, decimal.RequireFromString("-64").Equal(rows[1].Amount))
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		input    string
		memo     string
		expected string
	}{
		{
			name:     "remove POS prefix",
			input:    "POS PURCHASE STARBUCKS",
			expected: "STARBUCKS",
		},
		{
			name:     "remove DEBIT CARD prefix",
			input:    "DEBIT CARD PURCHASE WHOLE FOODS",
			expected: "WHOLE FOODS",
		},
		{
			name:     "keep clean name",
			input:    "NETFLIX.COM",
			expected: "NETFLIX.COM",
		},
		{
			name:     "trim whitespace",
			input:    "  AMAZON.COM  ",
			expected: "AMAZON.COM",
		},
		{
			name:     "generic name falls back to memo",
			input:    "PURCHASE",
			memo:     "CORNER BAKERY",
			expected: "CORNER BAKERY",
		},
		{
			name:     "leading date is dropped",
			input:    "03/14 SHELL OIL",
			expected: "SHELL OIL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{
				Name: ofxgo.String(tt.input),
				Memo: ofxgo.String(tt.memo),
			}
			assert.Equal(t, tt.expected, parser.extractMerchantName(tx))
		})
	}
}

func TestIsOFXFile(t *testing.T) {
	assert.True(t, IsOFXFile("statement.ofx"))
	assert.True(t, IsOFXFile("Statement.QFX"))
	assert.False(t, IsOFXFile("statement.csv"))
	assert.False(t, IsOFXFile("ofx"))
}

func TestMaskAccount(t *testing.T) {
	assert.Equal(t, "...7890", maskAccount("1234567890"))
	assert.Equal(t, "123", maskAccount("123"))
}
