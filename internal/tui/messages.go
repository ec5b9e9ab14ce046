package tui

import "github.com/Veraticus/house-money/internal/model"

// Data loading messages.
type transactionsLoadedMsg struct {
	err          error
	transactions []model.Transaction
}

type tagsLoadedMsg struct {
	err  error
	tags []model.Tag
}

// transactionSavedMsg carries a transaction re-read after an edit.
type transactionSavedMsg struct {
	err         error
	transaction *model.Transaction
	what        string
}
