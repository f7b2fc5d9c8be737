package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/logger"
	"github.com/tomasagata/extra-api-sub001/model"
)

// InvestmentReturnProcessor posts the deposits owed by investments.
type InvestmentReturnProcessor struct {
	investments  contract.InvestmentRepo
	transactions contract.TransactionRepo
	devices      *DeviceService
}

func NewInvestmentReturnProcessor(investments contract.InvestmentRepo, transactions contract.TransactionRepo, devices *DeviceService) *InvestmentReturnProcessor {
	return &InvestmentReturnProcessor{investments: investments, transactions: transactions, devices: devices}
}

// ProcessDue pays every return due on or before now's date, catching up on
// missed intervals, and returns how many deposits were posted. A failing
// investment is logged and skipped.
func (p *InvestmentReturnProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	log := logger.FromContext(ctx)
	today := model.DateOf(now)

	due, err := p.investments.FindDue(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("find due investments: %w", err)
	}

	posted := 0
	for _, i := range due {
		n, err := p.process(ctx, i, today)
		posted += n
		if err != nil {
			log.Error().Err(err).Int64("investment_id", i.ID).Msg("investment return failed")
		}
	}
	if posted > 0 {
		log.Info().Int("deposits", posted).Str("date", today.String()).Msg("investment returns posted")
	}
	return posted, nil
}

func (p *InvestmentReturnProcessor) process(ctx context.Context, i model.Investment, today model.Date) (int, error) {
	posted := 0
	for i.Due(today) {
		payDate := i.NextReturnDate
		next := payDate.AddDays(i.ReturnIntervalDays)

		// Claiming the date first keeps two workers from paying the same return.
		claimed, err := p.investments.AdvanceReturn(ctx, i.ID, payDate, next)
		if err != nil {
			return posted, fmt.Errorf("advance return: %w", err)
		}
		if !claimed {
			return posted, nil
		}
		i.NextReturnDate = next

		investmentID := i.ID
		_, err = p.transactions.CreateDeposit(ctx, &model.Transaction{
			OwnerID:      i.OwnerID,
			Kind:         model.KindDeposit,
			Concept:      "Return: " + i.Name,
			Amount:       i.ReturnAmount,
			Date:         payDate,
			Category:     i.Category,
			InvestmentID: &investmentID,
		})
		if err != nil {
			return posted, fmt.Errorf("post return for %s: %w", payDate, err)
		}
		posted++

		err = p.devices.Push(ctx, i.OwnerID, "Investment return",
			fmt.Sprintf("%s paid %s", i.Name, i.ReturnAmount.StringFixed(2)),
			map[string]string{
				"type":         "investment_return",
				"investmentId": fmt.Sprint(i.ID),
				"date":         payDate.String(),
			})
		if err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Int64("investment_id", i.ID).Msg("return notification failed")
		}
	}
	return posted, nil
}
