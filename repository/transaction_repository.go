package repository

import (
	"database/sql"
	"go-bank-app/logger"
	"go-bank-app/model"

	"github.com/sirupsen/logrus"
)

// ITransactionRepository defines the contract for ledger entry database
// operations. Entries are append-only: there is no update or delete path.
type ITransactionRepository interface {
	CreateTransaction(tx *sql.Tx, transaction *model.Transaction) error
	GetTransactionsByAccountID(accountID int) ([]*model.Transaction, error)
}

// TransactionRepository implements ITransactionRepository.
type TransactionRepository struct {
	DB *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{DB: db}
}

func (r *TransactionRepository) CreateTransaction(tx *sql.Tx, transaction *model.Transaction) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id": transaction.AccountID,
		"kind":       transaction.Kind,
		"amount":     transaction.Amount.String(),
	})
	log.Info("Executing query to create a new transaction")

	query := `INSERT INTO transactions (account_id, kind, counterparty, amount) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := tx.QueryRow(query, transaction.AccountID, transaction.Kind, transaction.Counterparty, transaction.Amount).Scan(&transaction.ID, &transaction.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create transaction query")
		return err
	}
	return nil
}

// GetTransactionsByAccountID retrieves all transactions recorded against an
// account in chronological order.
func (r *TransactionRepository) GetTransactionsByAccountID(accountID int) ([]*model.Transaction, error) {
	log := logger.Log.WithField("account_id", accountID)
	log.Info("Executing query to get transactions by account ID")

	query := `
		SELECT id, account_id, kind, counterparty, amount, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.Query(query, accountID)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for transactions by account ID")
		return nil, err
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Counterparty, &t.Amount, &t.CreatedAt); err != nil {
			log.WithError(err).Error("Failed to scan transaction row")
			return nil, err
		}
		transactions = append(transactions, &t)
	}

	return transactions, rows.Err()
}
