// service/ledger_service_test.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"go-bank-app/logger"
	"go-bank-app/model"
	"go-bank-app/repository"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// TestMain runs setup before any tests in this package are executed.
func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// MockAccountRepository is a mock for repository.IAccountRepository.
type MockAccountRepository struct{ mock.Mock }

func (m *MockAccountRepository) CreateAccount(account *model.Account) error {
	args := m.Called(account)
	return args.Error(0)
}
func (m *MockAccountRepository) GetAccountByUsername(username string) (*model.Account, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}
func (m *MockAccountRepository) GetAccountByID(id int) (*model.Account, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}
func (m *MockAccountRepository) GetAccountForUpdate(tx *sql.Tx, accountID int) (*model.Account, error) {
	args := m.Called(tx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}
func (m *MockAccountRepository) UpdateAccountBalance(tx *sql.Tx, accountID int, newBalance decimal.Decimal) error {
	args := m.Called(tx, accountID, newBalance)
	return args.Error(0)
}

// MockTransactionRepository is a mock for repository.ITransactionRepository.
type MockTransactionRepository struct{ mock.Mock }

func (m *MockTransactionRepository) CreateTransaction(tx *sql.Tx, transaction *model.Transaction) error {
	args := m.Called(tx, transaction)
	return args.Error(0)
}
func (m *MockTransactionRepository) GetTransactionsByAccountID(accountID int) ([]*model.Transaction, error) {
	args := m.Called(accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

// fakeHasher keeps ledger tests fast by avoiding real bcrypt work.
type fakeHasher struct{}

func (fakeHasher) HashPassword(password string) (string, error) { return "hashed:" + password, nil }
func (fakeHasher) CheckPasswordHash(password, hash string) bool {
	return hash == "hashed:"+password
}

func amountEq(expected decimal.Decimal) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(expected) })
}

func newLedgerForTest(t *testing.T) (*LedgerService, sqlmock.Sqlmock, *MockAccountRepository, *MockTransactionRepository) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mockAccountRepo := new(MockAccountRepository)
	mockTxnRepo := new(MockTransactionRepository)
	ledger := NewLedgerService(db, mockAccountRepo, mockTxnRepo, fakeHasher{})
	return ledger, dbMock, mockAccountRepo, mockTxnRepo
}

func TestLedgerService_RegisterAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("success creates account with zero balance", func(t *testing.T) {
		ledger, _, mockAccountRepo, _ := newLedgerForTest(t)

		mockAccountRepo.On("GetAccountByUsername", "alice").Return(nil, sql.ErrNoRows).Once()
		mockAccountRepo.On("CreateAccount", mock.MatchedBy(func(acc *model.Account) bool {
			return acc.Username == "alice" &&
				acc.Password == "hashed:password123" &&
				acc.Balance.IsZero()
		})).Return(nil).Once()

		account, err := ledger.RegisterAccount(ctx, "alice", "password123")

		assert.NoError(t, err)
		assert.NotNil(t, account)
		assert.True(t, account.Balance.IsZero())
		mockAccountRepo.AssertExpectations(t)
	})

	t.Run("duplicate username", func(t *testing.T) {
		ledger, _, mockAccountRepo, _ := newLedgerForTest(t)

		existing := &model.Account{ID: 7, Username: "alice"}
		mockAccountRepo.On("GetAccountByUsername", "alice").Return(existing, nil).Once()

		_, err := ledger.RegisterAccount(ctx, "alice", "password123")

		assert.ErrorIs(t, err, ErrDuplicateAccount)
		mockAccountRepo.AssertNotCalled(t, "CreateAccount")
	})

	t.Run("duplicate caught by unique constraint", func(t *testing.T) {
		ledger, _, mockAccountRepo, _ := newLedgerForTest(t)

		mockAccountRepo.On("GetAccountByUsername", "alice").Return(nil, sql.ErrNoRows).Once()
		mockAccountRepo.On("CreateAccount", mock.AnythingOfType("*model.Account")).
			Return(repository.ErrDuplicateUsername).Once()

		_, err := ledger.RegisterAccount(ctx, "alice", "password123")

		assert.ErrorIs(t, err, ErrDuplicateAccount)
		mockAccountRepo.AssertExpectations(t)
	})

	t.Run("storage failure on lookup", func(t *testing.T) {
		ledger, _, mockAccountRepo, _ := newLedgerForTest(t)

		mockAccountRepo.On("GetAccountByUsername", "alice").Return(nil, errors.New("db down")).Once()

		_, err := ledger.RegisterAccount(ctx, "alice", "password123")

		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})
}

func TestLedgerService_Authenticate(t *testing.T) {
	ctx := context.Background()
	stored := &model.Account{ID: 1, Username: "alice", Password: "hashed:password123"}

	t.Run("success", func(t *testing.T) {
		ledger, _, mockAccountRepo, _ := newLedgerForTest(t)
		mockAccountRepo.On("GetAccountByUsername", "alice").Return(stored, nil).Once()

		account, err := ledger.Authenticate(ctx, "alice", "password123")

		assert.NoError(t, err)
		assert.Equal(t, 1, account.ID)
		mockAccountRepo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		ledger, _, mockAccountRepo, _ := newLedgerForTest(t)
		mockAccountRepo.On("GetAccountByUsername", "alice").Return(stored, nil).Once()

		_, err := ledger.Authenticate(ctx, "alice", "wrong")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown username", func(t *testing.T) {
		ledger, _, mockAccountRepo, _ := newLedgerForTest(t)
		mockAccountRepo.On("GetAccountByUsername", "ghost").Return(nil, sql.ErrNoRows).Once()

		_, err := ledger.Authenticate(ctx, "ghost", "password123")

		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestLedgerService_Deposit(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		ledger, dbMock, mockAccountRepo, mockTxnRepo := newLedgerForTest(t)
		account := &model.Account{ID: 1, Username: "alice", Balance: decimal.NewFromInt(100)}

		dbMock.ExpectBegin()
		mockAccountRepo.On("GetAccountForUpdate", mock.Anything, 1).Return(account, nil).Once()
		mockAccountRepo.On("UpdateAccountBalance", mock.Anything, 1, amountEq(decimal.NewFromInt(140))).Return(nil).Once()
		mockTxnRepo.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(tr *model.Transaction) bool {
			return tr.AccountID == 1 &&
				tr.Kind == model.KindDeposit &&
				tr.Counterparty == "" &&
				tr.Amount.Equal(decimal.NewFromInt(40))
		})).Return(nil).Once()
		dbMock.ExpectCommit()

		updated, entry, err := ledger.Deposit(ctx, 1, decimal.NewFromInt(40))

		assert.NoError(t, err)
		assert.True(t, updated.Balance.Equal(decimal.NewFromInt(140)))
		assert.Equal(t, model.KindDeposit, entry.Kind)
		mockAccountRepo.AssertExpectations(t)
		mockTxnRepo.AssertExpectations(t)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		ledger, _, mockAccountRepo, _ := newLedgerForTest(t)

		_, _, err := ledger.Deposit(ctx, 1, decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, _, err = ledger.Deposit(ctx, 1, decimal.NewFromInt(-5))
		assert.ErrorIs(t, err, ErrInvalidAmount)

		mockAccountRepo.AssertNotCalled(t, "GetAccountForUpdate")
	})

	t.Run("account not found", func(t *testing.T) {
		ledger, dbMock, mockAccountRepo, _ := newLedgerForTest(t)

		dbMock.ExpectBegin()
		mockAccountRepo.On("GetAccountForUpdate", mock.Anything, 99).Return(nil, sql.ErrNoRows).Once()
		dbMock.ExpectRollback()

		_, _, err := ledger.Deposit(ctx, 99, decimal.NewFromInt(10))

		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestLedgerService_Withdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		ledger, dbMock, mockAccountRepo, mockTxnRepo := newLedgerForTest(t)
		account := &model.Account{ID: 1, Username: "alice", Balance: decimal.NewFromInt(100)}

		dbMock.ExpectBegin()
		mockAccountRepo.On("GetAccountForUpdate", mock.Anything, 1).Return(account, nil).Once()
		mockAccountRepo.On("UpdateAccountBalance", mock.Anything, 1, amountEq(decimal.NewFromInt(60))).Return(nil).Once()
		mockTxnRepo.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(tr *model.Transaction) bool {
			return tr.AccountID == 1 &&
				tr.Kind == model.KindWithdraw &&
				tr.Amount.Equal(decimal.NewFromInt(40))
		})).Return(nil).Once()
		dbMock.ExpectCommit()

		updated, entry, err := ledger.Withdraw(ctx, 1, decimal.NewFromInt(40))

		assert.NoError(t, err)
		assert.True(t, updated.Balance.Equal(decimal.NewFromInt(60)))
		assert.Equal(t, model.KindWithdraw, entry.Kind)
		mockAccountRepo.AssertExpectations(t)
		mockTxnRepo.AssertExpectations(t)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("insufficient funds leaves state unchanged", func(t *testing.T) {
		ledger, dbMock, mockAccountRepo, mockTxnRepo := newLedgerForTest(t)
		account := &model.Account{ID: 1, Username: "alice", Balance: decimal.NewFromInt(30)}

		dbMock.ExpectBegin()
		mockAccountRepo.On("GetAccountForUpdate", mock.Anything, 1).Return(account, nil).Once()
		dbMock.ExpectRollback()

		_, _, err := ledger.Withdraw(ctx, 1, decimal.NewFromInt(40))

		assert.ErrorIs(t, err, ErrInsufficientFunds)
		mockAccountRepo.AssertNotCalled(t, "UpdateAccountBalance")
		mockTxnRepo.AssertNotCalled(t, "CreateTransaction")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		ledger, _, mockAccountRepo, _ := newLedgerForTest(t)

		_, _, err := ledger.Withdraw(ctx, 1, decimal.Zero)

		assert.ErrorIs(t, err, ErrInvalidAmount)
		mockAccountRepo.AssertNotCalled(t, "GetAccountForUpdate")
	})
}

func TestLedgerService_Transfer(t *testing.T) {
	ctx := context.Background()
	amount := decimal.NewFromInt(30)

	t.Run("success debits sender and credits recipient", func(t *testing.T) {
		ledger, dbMock, mockAccountRepo, mockTxnRepo := newLedgerForTest(t)
		sender := &model.Account{ID: 1, Username: "alice", Balance: decimal.NewFromInt(60)}
		recipient := &model.Account{ID: 2, Username: "bob", Balance: decimal.NewFromInt(10)}

		mockAccountRepo.On("GetAccountByUsername", "bob").Return(recipient, nil).Once()
		dbMock.ExpectBegin()
		mockAccountRepo.On("GetAccountForUpdate", mock.Anything, 1).Return(sender, nil).Once()
		mockAccountRepo.On("GetAccountForUpdate", mock.Anything, 2).Return(recipient, nil).Once()
		mockAccountRepo.On("UpdateAccountBalance", mock.Anything, 1, amountEq(decimal.NewFromInt(30))).Return(nil).Once()
		mockAccountRepo.On("UpdateAccountBalance", mock.Anything, 2, amountEq(decimal.NewFromInt(40))).Return(nil).Once()
		mockTxnRepo.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(tr *model.Transaction) bool {
			return tr.AccountID == 1 &&
				tr.Kind == model.KindTransferOut &&
				tr.Counterparty == "bob" &&
				tr.Amount.Equal(amount)
		})).Return(nil).Once()
		mockTxnRepo.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(tr *model.Transaction) bool {
			return tr.AccountID == 2 &&
				tr.Kind == model.KindTransferIn &&
				tr.Counterparty == "alice" &&
				tr.Amount.Equal(amount)
		})).Return(nil).Once()
		dbMock.ExpectCommit()

		debit, err := ledger.Transfer(ctx, 1, "bob", amount)

		assert.NoError(t, err)
		assert.Equal(t, model.KindTransferOut, debit.Kind)
		assert.Equal(t, "bob", debit.Counterparty)
		mockAccountRepo.AssertExpectations(t)
		mockTxnRepo.AssertExpectations(t)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("locks accounts in ascending id order", func(t *testing.T) {
		ledger, dbMock, mockAccountRepo, mockTxnRepo := newLedgerForTest(t)
		// Sender has the higher id; the recipient row must be locked first.
		sender := &model.Account{ID: 5, Username: "carol", Balance: decimal.NewFromInt(100)}
		recipient := &model.Account{ID: 2, Username: "bob", Balance: decimal.NewFromInt(10)}

		mockAccountRepo.On("GetAccountByUsername", "bob").Return(recipient, nil).Once()
		dbMock.ExpectBegin()

		var lockOrder []int
		mockAccountRepo.On("GetAccountForUpdate", mock.Anything, 2).Run(func(args mock.Arguments) {
			lockOrder = append(lockOrder, 2)
		}).Return(recipient, nil).Once()
		mockAccountRepo.On("GetAccountForUpdate", mock.Anything, 5).Run(func(args mock.Arguments) {
			lockOrder = append(lockOrder, 5)
		}).Return(sender, nil).Once()

		mockAccountRepo.On("UpdateAccountBalance", mock.Anything, 5, amountEq(decimal.NewFromInt(70))).Return(nil).Once()
		mockAccountRepo.On("UpdateAccountBalance", mock.Anything, 2, amountEq(decimal.NewFromInt(40))).Return(nil).Once()
		mockTxnRepo.On("CreateTransaction", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil).Twice()
		dbMock.ExpectCommit()

		_, err := ledger.Transfer(ctx, 5, "bob", amount)

		assert.NoError(t, err)
		assert.Equal(t, []int{2, 5}, lockOrder)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		ledger, dbMock, mockAccountRepo, mockTxnRepo := newLedgerForTest(t)
		sender := &model.Account{ID: 1, Username: "alice", Balance: decimal.NewFromInt(10)}
		recipient := &model.Account{ID: 2, Username: "bob", Balance: decimal.NewFromInt(10)}

		mockAccountRepo.On("GetAccountByUsername", "bob").Return(recipient, nil).Once()
		dbMock.ExpectBegin()
		mockAccountRepo.On("GetAccountForUpdate", mock.Anything, 1).Return(sender, nil).Once()
		mockAccountRepo.On("GetAccountForUpdate", mock.Anything, 2).Return(recipient, nil).Once()
		dbMock.ExpectRollback()

		_, err := ledger.Transfer(ctx, 1, "bob", amount)

		assert.ErrorIs(t, err, ErrInsufficientFunds)
		mockAccountRepo.AssertNotCalled(t, "UpdateAccountBalance")
		mockTxnRepo.AssertNotCalled(t, "CreateTransaction")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("recipient not found", func(t *testing.T) {
		ledger, dbMock, mockAccountRepo, _ := newLedgerForTest(t)

		mockAccountRepo.On("GetAccountByUsername", "ghost").Return(nil, sql.ErrNoRows).Once()

		_, err := ledger.Transfer(ctx, 1, "ghost", amount)

		assert.ErrorIs(t, err, ErrRecipientNotFound)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("self transfer is forbidden", func(t *testing.T) {
		ledger, _, mockAccountRepo, _ := newLedgerForTest(t)
		sender := &model.Account{ID: 1, Username: "alice", Balance: decimal.NewFromInt(100)}

		mockAccountRepo.On("GetAccountByUsername", "alice").Return(sender, nil).Once()

		_, err := ledger.Transfer(ctx, 1, "alice", amount)

		assert.ErrorIs(t, err, ErrSelfTransfer)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		ledger, _, mockAccountRepo, _ := newLedgerForTest(t)

		_, err := ledger.Transfer(ctx, 1, "bob", decimal.Zero)

		assert.ErrorIs(t, err, ErrInvalidAmount)
		mockAccountRepo.AssertNotCalled(t, "GetAccountByUsername")
	})

	t.Run("commit error surfaces as storage failure", func(t *testing.T) {
		ledger, dbMock, mockAccountRepo, mockTxnRepo := newLedgerForTest(t)
		sender := &model.Account{ID: 1, Username: "alice", Balance: decimal.NewFromInt(60)}
		recipient := &model.Account{ID: 2, Username: "bob", Balance: decimal.NewFromInt(10)}

		mockAccountRepo.On("GetAccountByUsername", "bob").Return(recipient, nil).Once()
		dbMock.ExpectBegin()
		mockAccountRepo.On("GetAccountForUpdate", mock.Anything, 1).Return(sender, nil).Once()
		mockAccountRepo.On("GetAccountForUpdate", mock.Anything, 2).Return(recipient, nil).Once()
		mockAccountRepo.On("UpdateAccountBalance", mock.Anything, 1, mock.Anything).Return(nil).Once()
		mockAccountRepo.On("UpdateAccountBalance", mock.Anything, 2, mock.Anything).Return(nil).Once()
		mockTxnRepo.On("CreateTransaction", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil).Twice()
		dbMock.ExpectCommit().WillReturnError(errors.New("commit failed"))

		_, err := ledger.Transfer(ctx, 1, "bob", amount)

		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestLedgerService_TransactionHistory(t *testing.T) {
	ledger, _, _, mockTxnRepo := newLedgerForTest(t)

	expected := []*model.Transaction{
		{ID: 1, AccountID: 1, Kind: model.KindDeposit, Amount: decimal.NewFromInt(100)},
		{ID: 2, AccountID: 1, Kind: model.KindWithdraw, Amount: decimal.NewFromInt(40)},
	}
	mockTxnRepo.On("GetTransactionsByAccountID", 1).Return(expected, nil).Once()

	transactions, err := ledger.TransactionHistory(context.Background(), 1)

	assert.NoError(t, err)
	assert.Equal(t, expected, transactions)
	mockTxnRepo.AssertExpectations(t)
}
