package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const storageTimeout = 10 * time.Second

// loadTransactions lists transactions for the current query.
func (m Model) loadTransactions() tea.Cmd {
	store, query := m.storage, m.query
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()

		transactions, err := store.ListTransactions(ctx, query)
		return transactionsLoadedMsg{transactions: transactions, err: err}
	}
}

// loadTags lists the tags offered by the tag picker.
func (m Model) loadTags() tea.Cmd {
	store := m.storage
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()

		tags, err := store.ListTags(ctx)
		return tagsLoadedMsg{tags: tags, err: err}
	}
}

// saveNote stores note on a transaction and reads it back.
func (m Model) saveNote(id int64, note string) tea.Cmd {
	store := m.storage
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()

		if err := store.UpdateTransactionNote(ctx, id, note); err != nil {
			return transactionSavedMsg{err: fmt.Errorf("failed to save note: %w", err)}
		}
		txn, err := store.GetTransaction(ctx, id)
		return transactionSavedMsg{transaction: txn, err: err, what: "note"}
	}
}

// saveTags replaces the tags of a transaction and reads it back.
func (m Model) saveTags(id int64, tagIDs []int64) tea.Cmd {
	store := m.storage
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()

		if err := store.UpdateTransactionTags(ctx, id, tagIDs); err != nil {
			return transactionSavedMsg{err: fmt.Errorf("failed to save tags: %w", err)}
		}
		txn, err := store.GetTransaction(ctx, id)
		return transactionSavedMsg{transaction: txn, err: err, what: "tags"}
	}
}
