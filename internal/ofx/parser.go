// Package ofx converts OFX and QFX bank statements into import rows.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// IsOFXFile reports whether filename has an OFX or QFX extension.
func IsOFXFile(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".ofx") || strings.HasSuffix(lower, ".qfx")
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the closing bracket of an opening tag.
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses every bank and credit card statement in the file. The
// account name is kept in the row's Notes so rows from several accounts stay
// distinguishable.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.ImportRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse OFX file: %w", common.ErrMalformedInput, err)
	}

	var rows []model.ImportRow
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			rows = append(rows, p.convertAll(stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID))...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			rows = append(rows, p.convertAll(stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID))...)
		}
	}

	if bankStmts+ccStmts == 0 {
		return nil, fmt.Errorf("%w: OFX file contains no statements", common.ErrMalformedInput)
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(rows),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return rows, nil
}

func (p *Parser) convertAll(txns []ofxgo.Transaction, accountID string) []model.ImportRow {
	rows := make([]model.ImportRow, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, p.convertTransaction(t, accountID))
	}
	return rows
}

// convertTransaction keeps the OFX sign convention: debits are negative.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) model.ImportRow {
	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(2))
	if err != nil {
		amount = decimal.Zero
	}

	row := model.ImportRow{
		Date:        ofxTx.DtPosted.Time.UTC(),
		Description: p.extractMerchantName(ofxTx),
		Amount:      amount,
		Extra: map[string]string{
			"FITID": string(ofxTx.FiTID),
			"Type":  ofxTx.TrnType.String(),
		},
	}
	if accountID != "" {
		row.Notes = "Account " + maskAccount(accountID)
	}
	if ofxTx.CheckNum != "" {
		row.Extra["Check Number"] = string(ofxTx.CheckNum)
	}

	switch ofxTx.TrnType {
	case ofxgo.TrnTypeInt, ofxgo.TrnTypeDiv:
		row.Tags = "Income"
	case ofxgo.TrnTypeATM:
		row.Tags = "Cash"
	}

	return row
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	// Prefer PAYEE if available (cleaner merchant name)
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Drop a leading "MM/DD " date.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// maskAccount keeps only the last four characters of an account number.
func maskAccount(id string) string {
	if len(id) <= 4 {
		return id
	}
	return "..." + id[len(id)-4:]
}
