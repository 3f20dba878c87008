package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ride_ledger/internal/models"
)

// ErrEmailTaken is returned by OpenAccount when the email is already
// bound to another identity.
var ErrEmailTaken = errors.New("email already in use")

// OpenAccount creates a user account with a fresh identity and a zero
// balance. passwordHash is stored as given.
func (l *Ledger) OpenAccount(ctx context.Context, name, email, passwordHash string) (models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.Account{}, newError(KindInvalidArgument, "email is required")
	}
	account := models.Account{
		Identity:     uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Kind:         models.AccountUser,
	}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Account{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if n > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create account: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Account{}, err
	}
	l.log.WithField("identity", account.Identity).Info("account opened")
	return account, nil
}

// AccountByEmail is used by login.
func (l *Ledger) AccountByEmail(ctx context.Context, email string) (models.Account, error) {
	var account models.Account
	err := l.db.WithContext(ctx).
		Where("email = ? AND kind = ?", strings.ToLower(strings.TrimSpace(email)), models.AccountUser).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return account, newError(KindNotFound, "no account for %s", email)
	}
	if err != nil {
		return account, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

func (l *Ledger) Account(ctx context.Context, identity string) (models.Account, error) {
	var account models.Account
	err := l.db.WithContext(ctx).First(&account, "identity = ?", identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return account, newError(KindNotFound, "no account %s", identity)
	}
	if err != nil {
		return account, fmt.Errorf("load account %s: %w", identity, err)
	}
	return account, nil
}

// Deposit credits value arriving from outside the ledger.
func (l *Ledger) Deposit(ctx context.Context, identity string, amount uint64) (models.Account, error) {
	if amount == 0 {
		return models.Account{}, newError(KindInvalidArgument, "amount must be positive")
	}
	if err := checkAmount("amount", amount); err != nil {
		return models.Account{}, err
	}
	if identity == models.CustodyIdentity {
		return models.Account{}, newError(KindUnauthorized, "custody account is managed by the ledger")
	}
	err := l.transact(ctx, func(tx *gorm.DB, _ *events) error {
		ok, err := credit(tx, identity, amount)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		exists, err := accountExists(tx, identity)
		if err != nil {
			return err
		}
		if !exists {
			return newError(KindNotFound, "no account %s", identity)
		}
		return newError(KindInvalidArgument, "deposit of %d would push the balance of %s past %d", amount, identity, uint64(MaxAmount))
	})
	if err != nil {
		return models.Account{}, err
	}
	l.log.WithFields(logrus.Fields{"identity": identity, "amount": amount}).Info("deposit")
	return l.Account(ctx, identity)
}

// Withdraw debits value leaving the ledger.
func (l *Ledger) Withdraw(ctx context.Context, identity string, amount uint64) (models.Account, error) {
	if amount == 0 {
		return models.Account{}, newError(KindInvalidArgument, "amount must be positive")
	}
	if err := checkAmount("amount", amount); err != nil {
		return models.Account{}, err
	}
	if identity == models.CustodyIdentity {
		return models.Account{}, newError(KindUnauthorized, "custody account is managed by the ledger")
	}
	err := l.transact(ctx, func(tx *gorm.DB, _ *events) error {
		ok, err := debit(tx, identity, amount)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		exists, err := accountExists(tx, identity)
		if err != nil {
			return err
		}
		if !exists {
			return newError(KindNotFound, "no account %s", identity)
		}
		return newError(KindInsufficientBalance, "balance of %s is below %d", identity, amount)
	})
	if err != nil {
		return models.Account{}, err
	}
	l.log.WithFields(logrus.Fields{"identity": identity, "amount": amount}).Info("withdrawal")
	return l.Account(ctx, identity)
}

func accountExists(tx *gorm.DB, identity string) (bool, error) {
	var n int64
	if err := tx.Model(&models.Account{}).Where("identity = ?", identity).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check account %s: %w", identity, err)
	}
	return n > 0, nil
}

func (l *Ledger) Balance(ctx context.Context, identity string) (uint64, error) {
	account, err := l.Account(ctx, identity)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Audit compares the custody balance with the sum of every escrow.
type Audit struct {
	Custody     uint64 `json:"custody"`
	EscrowTotal uint64 `json:"escrow_total"`
	OpenEscrows int64  `json:"open_escrows"`
}

func (a Audit) Consistent() bool {
	return a.Custody == a.EscrowTotal
}

func (l *Ledger) Audit(ctx context.Context) (Audit, error) {
	var audit Audit
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var custody models.Account
		if err := tx.First(&custody, "identity = ?", models.CustodyIdentity).Error; err != nil {
			return fmt.Errorf("load custody account: %w", err)
		}
		audit.Custody = custody.Balance

		var sum struct {
			Total uint64
			Open  int64
		}
		if err := tx.Model(&models.Escrow{}).
			Select("CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS total, COUNT(CASE WHEN amount > 0 THEN 1 END) AS open").
			Scan(&sum).Error; err != nil {
			return fmt.Errorf("sum escrows: %w", err)
		}
		audit.EscrowTotal = sum.Total
		audit.OpenEscrows = sum.Open
		return nil
	})
	if err != nil {
		return Audit{}, err
	}
	if !audit.Consistent() {
		l.log.WithFields(logrus.Fields{"custody": audit.Custody, "escrow_total": audit.EscrowTotal}).Error("custody balance does not match escrows")
	}
	return audit, nil
}
