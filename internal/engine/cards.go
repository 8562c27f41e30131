package engine

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// CardParams are the user-editable fields of a credit card.
type CardParams struct {
	Name               string
	Limit              core.Money
	ClosingDay         int
	DueDay             int
	DefaultPayerCardID string
}

// CardEngine manages credit cards, their purchases and billing cycles.
type CardEngine struct {
	deps
}

func NewCardEngine(repo storage.Repository, opts Options) *CardEngine {
	return &CardEngine{deps: newDeps(repo, opts)}
}

func (e *CardEngine) Cards(ctx context.Context) ([]core.CreditCard, error) {
	return e.repo.Cards(ctx)
}

func (e *CardEngine) Card(ctx context.Context, id string) (core.CreditCard, error) {
	return e.repo.Card(ctx, id)
}

func checkPayer(ctx context.Context, s storage.Store, card core.CreditCard) error {
	if !card.HasPayer() {
		return nil
	}
	if card.DefaultPayerCardID == card.ID {
		return core.ErrSelfPayer
	}
	if _, err := s.Card(ctx, card.DefaultPayerCardID); err != nil {
		return fmt.Errorf("payer card: %w", err)
	}
	return nil
}

// AddCard creates a card with its whole limit available.
func (e *CardEngine) AddCard(ctx context.Context, p CardParams) (core.CreditCard, error) {
	card := core.CreditCard{
		ID:                 e.newID(),
		Name:               p.Name,
		Limit:              p.Limit,
		AvailableLimit:     p.Limit,
		ClosingDay:         p.ClosingDay,
		DueDay:             p.DueDay,
		DefaultPayerCardID: p.DefaultPayerCardID,
	}
	if err := card.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	if err := checkPayer(ctx, e.repo, card); err != nil {
		return core.CreditCard{}, err
	}
	if err := e.repo.AddCard(ctx, card); err != nil {
		return core.CreditCard{}, fmt.Errorf("add card: %w", err)
	}
	slog.InfoContext(ctx, "Added credit card", "card_id", card.ID, "name", card.Name)
	return card, nil
}

// UpdateCard changes a card's settings. The outstanding amount is kept, so a
// new limit below it is rejected. When the payer changes, pending cycles are
// reconciled and the payments created are returned.
func (e *CardEngine) UpdateCard(ctx context.Context, id string, p CardParams) (core.CreditCard, []core.Transaction, error) {
	unlock, err := e.locks.Lock(ctx, cardKey(id))
	if err != nil {
		return core.CreditCard{}, nil, err
	}

	var (
		updated      core.CreditCard
		payerChanged bool
	)
	err = e.repo.WithTx(ctx, func(tx storage.Store) error {
		old, err := tx.Card(ctx, id)
		if err != nil {
			return err
		}
		outstanding := old.Limit.Sub(old.AvailableLimit)
		updated = core.CreditCard{
			ID:                 id,
			Name:               p.Name,
			Limit:              p.Limit,
			AvailableLimit:     p.Limit.Sub(outstanding),
			ClosingDay:         p.ClosingDay,
			DueDay:             p.DueDay,
			DefaultPayerCardID: p.DefaultPayerCardID,
		}
		if err := updated.Validate(); err != nil {
			return err
		}
		if err := checkPayer(ctx, tx, updated); err != nil {
			return err
		}
		payerChanged = old.DefaultPayerCardID != updated.DefaultPayerCardID
		return tx.UpdateCard(ctx, updated)
	})
	unlock()
	if err != nil {
		return core.CreditCard{}, nil, err
	}

	slog.InfoContext(ctx, "Updated credit card", "card_id", id, "payer_changed", payerChanged)
	if !payerChanged || !updated.HasPayer() {
		return updated, nil, nil
	}
	payments, err := e.ReconcilePayments(ctx)
	if err != nil {
		return updated, payments, fmt.Errorf("reconcile payments: %w", err)
	}
	return updated, payments, nil
}

// DeleteCard removes a card with nothing outstanding. Cards it paid for
// lose their payer.
func (e *CardEngine) DeleteCard(ctx context.Context, id string) error {
	cards, err := e.repo.Cards(ctx)
	if err != nil {
		return err
	}
	keys := []string{cardKey(id)}
	for _, c := range cards {
		if c.DefaultPayerCardID == id {
			keys = append(keys, cardKey(c.ID))
		}
	}
	unlock, err := e.locks.Lock(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	return e.repo.WithTx(ctx, func(tx storage.Store) error {
		card, err := tx.Card(ctx, id)
		if err != nil {
			return err
		}
		if !card.AvailableLimit.Equal(card.Limit) {
			return core.ErrCardHasBalance
		}
		all, err := tx.Cards(ctx)
		if err != nil {
			return err
		}
		for _, c := range all {
			if c.DefaultPayerCardID != id {
				continue
			}
			c.DefaultPayerCardID = ""
			if err := tx.UpdateCard(ctx, c); err != nil {
				return err
			}
		}
		return tx.DeleteCard(ctx, id)
	})
}

// PostPurchase charges amount to the card and records the expense in the
// billing month of date. It fails with *core.InsufficientLimitError when the
// available limit is too small, leaving the card untouched.
func (e *CardEngine) PostPurchase(ctx context.Context, cardID string, amount core.Money, date core.Date, category, description string) (core.Transaction, error) {
	if category == core.CategoryCardPayment || category == core.CategoryCoverage {
		return core.Transaction{}, core.ErrReservedCategory
	}
	if err := amount.Validate(); err != nil {
		return core.Transaction{}, err
	}

	unlock, err := e.locks.Lock(ctx, cardKey(cardID))
	if err != nil {
		return core.Transaction{}, err
	}
	defer unlock()

	var purchase core.Transaction
	err = e.repo.WithTx(ctx, func(tx storage.Store) error {
		card, err := tx.Card(ctx, cardID)
		if err != nil {
			return err
		}
		if err := card.Charge(amount); err != nil {
			return err
		}
		purchase = core.Transaction{
			ID:           e.newID(),
			Type:         core.Expense,
			Amount:       amount,
			Date:         date,
			Month:        card.BillingMonth(date),
			Category:     category,
			Description:  description,
			SourceCardID: card.ID,
			CreatedAt:    e.clock.Now().UTC(),
		}
		if err := purchase.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateCard(ctx, card); err != nil {
			return err
		}
		return tx.AddTransaction(ctx, purchase)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	e.changed(purchase.Month)
	slog.InfoContext(ctx, "Posted card purchase",
		"card_id", cardID,
		"transaction_id", purchase.ID,
		"billing_month", purchase.Month,
		"amount", amount.String())
	return purchase, nil
}

// CancelPurchase deletes a purchase whose cycle is not paid yet and gives
// its amount back to the card.
func (e *CardEngine) CancelPurchase(ctx context.Context, transactionID string) error {
	t, err := e.repo.Transaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if !t.IsCardPurchase() {
		return &core.NotFoundError{Kind: "card purchase", ID: transactionID}
	}

	unlock, err := e.locks.Lock(ctx, cardKey(t.SourceCardID))
	if err != nil {
		return err
	}
	defer unlock()

	err = e.repo.WithTx(ctx, func(tx storage.Store) error {
		if _, found, err := findPayment(ctx, tx, t.SourceCardID, t.Month); err != nil {
			return err
		} else if found {
			return core.ErrCyclePaid
		}
		card, err := tx.Card(ctx, t.SourceCardID)
		if err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, t.ID); err != nil {
			return err
		}
		card.Restore(t.Amount)
		return tx.UpdateCard(ctx, card)
	})
	if err != nil {
		return err
	}
	e.changed(t.Month)
	return nil
}

// CardPurchases returns the purchases billed to the card in month.
func (e *CardEngine) CardPurchases(ctx context.Context, cardID string, month core.Month) ([]core.Transaction, error) {
	if err := validMonth(month); err != nil {
		return nil, err
	}
	if _, err := e.repo.Card(ctx, cardID); err != nil {
		return nil, err
	}
	return e.repo.CardPurchases(ctx, cardID, month)
}

// CardMonthlyTotal sums the purchases billed to the card in month.
func (e *CardEngine) CardMonthlyTotal(ctx context.Context, cardID string, month core.Month) (core.Money, error) {
	purchases, err := e.CardPurchases(ctx, cardID, month)
	if err != nil {
		return core.Zero, err
	}
	return sumAmounts(purchases), nil
}

func sumAmounts(txs []core.Transaction) core.Money {
	total := core.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}

// findPayment looks for the automatic payment of the card's cycle billed in
// month.
func findPayment(ctx context.Context, s storage.Store, cardID string, month core.Month) (core.Transaction, bool, error) {
	txs, err := s.TransactionsByMonth(ctx, month)
	if err != nil {
		return core.Transaction{}, false, err
	}
	for _, t := range txs {
		if t.IsCardPayment() && t.SourceCardID == cardID {
			return t, true, nil
		}
	}
	return core.Transaction{}, false, nil
}

// CycleState reports where the card's cycle billed in month stands today.
func (e *CardEngine) CycleState(ctx context.Context, cardID string, month core.Month) (core.CycleState, error) {
	if err := validMonth(month); err != nil {
		return "", err
	}
	card, err := e.repo.Card(ctx, cardID)
	if err != nil {
		return "", err
	}
	if e.today().Before(card.ClosingDate(month)) {
		return core.CycleOpen, nil
	}
	_, paid, err := findPayment(ctx, e.repo, cardID, month)
	if err != nil {
		return "", err
	}
	switch {
	case paid:
		return core.CyclePaid, nil
	case !card.HasPayer():
		return core.CycleUnpaid, nil
	default:
		return core.CycleClosed, nil
	}
}

// GenerateAutoPayments pays every closed cycle billed in month for cards
// with a payer. Each payment restores the card's limit by the cycle total.
// Cycles already paid are skipped, so calling it again creates nothing.
func (e *CardEngine) GenerateAutoPayments(ctx context.Context, month core.Month) ([]core.Transaction, error) {
	if err := validMonth(month); err != nil {
		return nil, err
	}
	unlock, err := e.locks.Lock(ctx, paymentsKey(month))
	if err != nil {
		return nil, err
	}
	defer unlock()

	cards, err := e.repo.Cards(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	settings, err := e.repo.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	today := e.today()
	var created []core.Transaction
	for _, card := range cards {
		if !card.HasPayer() || today.Before(card.ClosingDate(month)) {
			continue
		}
		payment, ok, err := e.payCycle(ctx, card.ID, month)
		if err != nil {
			return created, fmt.Errorf("pay card %s for %s: %w", card.ID, month, err)
		}
		if !ok {
			continue
		}
		created = append(created, payment)

		slog.InfoContext(ctx, "Generated card payment",
			"card_id", card.ID,
			"payer_card_id", payment.PayerCardID,
			"month", month,
			"amount", payment.Amount.String())
		e.publish(ctx, core.Event{
			Type:     core.EventCardPaymentGenerated,
			Month:    month,
			EntityID: card.ID,
			Amount:   payment.Amount,
			Message:  fmt.Sprintf("%s bill of %s paid", card.Name, payment.Amount.Format(settings.Currency)),
		})
	}
	return created, nil
}

func (e *CardEngine) payCycle(ctx context.Context, cardID string, month core.Month) (core.Transaction, bool, error) {
	unlock, err := e.locks.Lock(ctx, cardKey(cardID))
	if err != nil {
		return core.Transaction{}, false, err
	}
	defer unlock()

	var payment core.Transaction
	var created bool
	err = e.repo.WithTx(ctx, func(tx storage.Store) error {
		if _, found, err := findPayment(ctx, tx, cardID, month); err != nil || found {
			return err
		}
		card, err := tx.Card(ctx, cardID)
		if err != nil {
			return err
		}
		if !card.HasPayer() {
			return nil
		}
		purchases, err := tx.CardPurchases(ctx, cardID, month)
		if err != nil {
			return err
		}
		total := sumAmounts(purchases)
		if total.IsZero() {
			return nil
		}

		payment = core.Transaction{
			ID:            e.newID(),
			Type:          core.Expense,
			Amount:        total,
			Date:          card.DueDate(month),
			Month:         month,
			Category:      core.CategoryCardPayment,
			Description:   "Payment " + card.Name,
			SourceCardID:  card.ID,
			PayerCardID:   card.DefaultPayerCardID,
			AutoGenerated: true,
			CreatedAt:     e.clock.Now().UTC(),
		}
		card.Restore(total)
		if err := tx.UpdateCard(ctx, card); err != nil {
			return err
		}
		if err := tx.AddTransaction(ctx, payment); err != nil {
			return err
		}
		created = true
		return nil
	})
	return payment, created, err
}

// ReconcilePayments generates the missing payments of every month from the
// earliest billed purchase up to the current month. It is what makes a new
// or changed payer settle past cycles without paying any of them twice.
func (e *CardEngine) ReconcilePayments(ctx context.Context) ([]core.Transaction, error) {
	txs, err := e.repo.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	var first core.Month
	for _, t := range txs {
		if t.IsCardPurchase() && (first.IsZero() || t.Month.Before(first)) {
			first = t.Month
		}
	}
	if first.IsZero() {
		return nil, nil
	}

	var created []core.Transaction
	for _, m := range core.MonthRange(first, core.CurrentMonth(e.clock)) {
		payments, err := e.GenerateAutoPayments(ctx, m)
		created = append(created, payments...)
		if err != nil {
			return created, err
		}
	}
	if len(created) > 0 {
		slog.InfoContext(ctx, "Reconciled card payments", "from", first, "created", len(created))
	}
	return created, nil
}
