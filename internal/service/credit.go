package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"posdesk/internal/domain"
	"posdesk/internal/store"
)

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalid
	}

	customer, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:  req.Name,
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, s.defaultStoreID, "customer_create", "customer", customer.ID, "name="+customer.Name)
	return *customer, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// RecordCreditPayment settles part of a customer's outstanding credit.
func (s *Service) RecordCreditPayment(ctx context.Context, customerID string, req domain.CreditPaymentRequest) (domain.CreditTransaction, error) {
	if customerID == "" || !req.Amount.IsPositive() {
		return domain.CreditTransaction{}, store.ErrInvalid
	}

	entry, err := s.repo.AppendCreditEntry(ctx, customerID, domain.CreditTypePayment, req.Amount, "")
	if err != nil {
		return domain.CreditTransaction{}, err
	}

	s.logAudit(ctx, s.defaultStoreID, "credit_payment", "customer", customerID, "amount="+req.Amount.String())
	return *entry, nil
}

func (s *Service) CreditHistory(ctx context.Context, customerID string, limit int) (domain.CreditHistoryResponse, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return domain.CreditHistoryResponse{}, err
	}
	entries, err := s.repo.ListCreditHistory(ctx, customerID, limit)
	if err != nil {
		return domain.CreditHistoryResponse{}, err
	}
	return domain.CreditHistoryResponse{Customer: *customer, Entries: entries}, nil
}

// DerivedCreditBalance recomputes the balance from the ledger alone.
// Charges add, payments subtract. It must always agree with the stored
// customer balance.
func DerivedCreditBalance(entries []domain.CreditTransaction) decimal.Decimal {
	balance := decimal.Zero
	for _, entry := range entries {
		switch entry.Type {
		case domain.CreditTypeCharge:
			balance = balance.Add(entry.Amount)
		case domain.CreditTypePayment:
			balance = balance.Sub(entry.Amount)
		}
	}
	return balance
}
