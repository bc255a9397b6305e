package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"accounting-engine/internal/apperrors"
	"accounting-engine/internal/metrics"
	"accounting-engine/internal/models"
)

// ReportInvalidator drops cached reports for a scope after the ledger
// changes. Optional; a nil invalidator is a no-op.
type ReportInvalidator interface {
	InvalidateScope(ctx context.Context, bankID, branchID string)
}

// PostingService turns operation events into balanced ledger entries and
// handles reversals.
type PostingService struct {
	ledger      LedgerStore
	rules       *RuleService
	chart       ChartStore
	logger      *zap.Logger
	cache       ReportInvalidator
	scale       int32
	retryBudget int

	// refLocks serializes posting and reversal for the same transaction
	// reference. Entries are dropped when the last holder releases, so the
	// map stays bounded by in-flight references.
	locksMu  sync.Mutex
	refLocks map[string]*refLock
}

type refLock struct {
	mu      sync.Mutex
	holders int
}

// NewPostingService creates a PostingService. scale is the currency
// precision every amount must fit; retryBudget bounds internal retries on
// balance-row conflicts.
func NewPostingService(ledger LedgerStore, rules *RuleService, chart ChartStore, cache ReportInvalidator, logger *zap.Logger, scale int32, retryBudget int) *PostingService {
	if retryBudget < 1 {
		retryBudget = 1
	}
	return &PostingService{
		ledger:      ledger,
		rules:       rules,
		chart:       chart,
		cache:       cache,
		logger:      logger,
		scale:       scale,
		retryBudget: retryBudget,
		refLocks:    make(map[string]*refLock),
	}
}

func (s *PostingService) lockRef(reference string) func() {
	s.locksMu.Lock()
	l := s.refLocks[reference]
	if l == nil {
		l = &refLock{}
		s.refLocks[reference] = l
	}
	l.holders++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.holders--
		if l.holders == 0 {
			delete(s.refLocks, reference)
		}
		s.locksMu.Unlock()
	}
}

// Post validates, resolves and commits one balanced posting. The whole
// posting succeeds or nothing is written.
func (s *PostingService) Post(ctx context.Context, req models.PostingRequest) (models.PostingResult, error) {
	started := time.Now()
	result, err := s.post(ctx, req)
	if err != nil {
		metrics.PostingsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		s.auditFailure("posting rejected", req.Actor, req.EventCode, req.Reference, req.Lines, err)
		return models.PostingResult{}, err
	}
	metrics.PostingsTotal.WithLabelValues("posted").Inc()
	metrics.PostingDuration.Observe(time.Since(started).Seconds())
	s.audit("posting committed", req.Actor, req.EventCode, req.Reference, result.Entries)
	if s.cache != nil {
		s.cache.InvalidateScope(ctx, req.Scope.BankID, req.Scope.BranchID)
	}
	return result, nil
}

func (s *PostingService) post(ctx context.Context, req models.PostingRequest) (models.PostingResult, error) {
	op, _, err := models.ParseEventCode(req.EventCode)
	if err != nil {
		return models.PostingResult{}, apperrors.Wrap(apperrors.KindConfiguration, "invalid event code", err)
	}
	event, ok := models.EventFor(op)
	if !ok {
		return models.PostingResult{}, apperrors.Newf(apperrors.KindConfiguration, "unknown operation type %q", op)
	}
	if req.Reference == "" {
		return models.PostingResult{}, apperrors.New(apperrors.KindValidation, "posting needs a transaction reference")
	}
	if req.Scope.BankID == "" {
		return models.PostingResult{}, apperrors.New(apperrors.KindValidation, "posting needs a bank scope")
	}

	// Every amount line must name a declared attribute and fit the
	// currency precision exactly.
	for _, line := range req.Lines {
		if !event.HasAttribute(line.Attribute) {
			return models.PostingResult{}, apperrors.Newf(apperrors.KindConfiguration,
				"attribute %q is not declared on event %q", line.Attribute, op)
		}
		if line.Amount.IsNegative() {
			return models.PostingResult{}, apperrors.Newf(apperrors.KindValidation,
				"amount for %q must not be negative", line.Attribute)
		}
		if !line.Amount.Equal(line.Amount.Round(s.scale)) {
			return models.PostingResult{}, apperrors.Newf(apperrors.KindValidation,
				"amount for %q exceeds currency precision of %d", line.Attribute, s.scale)
		}
	}

	rule, err := s.rules.ResolveRule(ctx, req.EventCode)
	if err != nil {
		return models.PostingResult{}, err
	}

	accountingDate := req.AccountingDate
	if accountingDate.IsZero() {
		accountingDate = time.Now().UTC()
	}

	var entries []models.AccountingEntry
	deltas := make(map[string]decimal.Decimal)
	totalDebit, totalCredit := decimal.Zero, decimal.Zero

	for _, line := range req.Lines {
		if line.Amount.IsZero() {
			continue
		}
		ruleEntries := rule.EntriesFor(line.Attribute)
		if !hasRole(ruleEntries, models.RoleDeterminant) || !hasRole(ruleEntries, models.RoleBalancing) {
			return models.PostingResult{}, apperrors.Newf(apperrors.KindConfiguration,
				"rule %s routes no determinant/balancing pair for attribute %q", rule.EventCode, line.Attribute)
		}

		for _, re := range ruleEntries {
			account, err := s.resolveAccount(ctx, req.Scope, re.Number)
			if err != nil {
				return models.PostingResult{}, err
			}

			dir := event.Determines
			if re.Role == models.RoleBalancing {
				dir = dir.Opposite()
			}

			entry := models.AccountingEntry{
				ID:             uuid.NewString(),
				AccountID:      account.ID,
				Number:         account.Number,
				Class:          account.Class,
				Scope:          account.Scope,
				Amount:         line.Amount,
				Direction:      dir,
				Reference:      req.Reference,
				EventCode:      req.EventCode,
				Attribute:      line.Attribute,
				UpstreamRef:    req.UpstreamRef,
				ValueDate:      accountingDate,
				AccountingDate: accountingDate,
				Status:         models.StatusPosted,
				CreatedAt:      time.Now().UTC(),
			}
			entries = append(entries, entry)

			if dir == models.DirectionDebit {
				totalDebit = totalDebit.Add(line.Amount)
			} else {
				totalCredit = totalCredit.Add(line.Amount)
			}
			deltas[account.ID] = deltas[account.ID].Add(models.SignedAmount(account.Class, dir, line.Amount))
		}
	}

	if len(entries) == 0 {
		return models.PostingResult{}, apperrors.New(apperrors.KindValidation, "posting has no non-zero amount lines")
	}

	if !totalDebit.Equal(totalCredit) {
		s.logImbalance(req, entries, totalDebit, totalCredit)
		return models.PostingResult{}, apperrors.Newf(apperrors.KindImbalance,
			"posting does not balance: debits %s, credits %s", totalDebit, totalCredit)
	}

	unlock := s.lockRef(req.Reference)
	defer unlock()

	if err := s.commitWithRetry(ctx, func() error {
		return s.ledger.CommitPosting(ctx, req.Reference, entries, deltas)
	}); err != nil {
		return models.PostingResult{}, err
	}

	return models.PostingResult{
		Reference:   req.Reference,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		Entries:     entries,
	}, nil
}

// Reverse emits the mirror image of a posted transaction under a new
// reference and marks the originals Reversed.
func (s *PostingService) Reverse(ctx context.Context, reference, actor string) (models.PostingResult, error) {
	unlock := s.lockRef(reference)
	defer unlock()

	originals, err := s.ledger.EntriesByReference(ctx, reference)
	if err != nil {
		metrics.ReversalsTotal.WithLabelValues("error").Inc()
		return models.PostingResult{}, apperrors.Wrap(apperrors.KindStorage, "loading entries", err)
	}
	if len(originals) == 0 {
		metrics.ReversalsTotal.WithLabelValues("not_found").Inc()
		return models.PostingResult{}, apperrors.Newf(apperrors.KindNotFound,
			"no entries posted under reference %q", reference)
	}

	var posted []models.AccountingEntry
	for _, e := range originals {
		if e.Status == models.StatusPosted {
			posted = append(posted, e)
		}
	}
	if len(posted) == 0 {
		metrics.ReversalsTotal.WithLabelValues("already_reversed").Inc()
		return models.PostingResult{}, apperrors.Newf(apperrors.KindAlreadyReversed,
			"reference %q is already reversed", reference)
	}

	reversalRef := "REV-" + uuid.NewString()
	now := time.Now().UTC()

	var mirrors []models.AccountingEntry
	deltas := make(map[string]decimal.Decimal)
	totalDebit, totalCredit := decimal.Zero, decimal.Zero

	for _, orig := range posted {
		dir := orig.Direction.Opposite()
		mirror := orig
		mirror.ID = uuid.NewString()
		mirror.Direction = dir
		mirror.Reference = reversalRef
		mirror.ReversalOf = reference
		mirror.Status = models.StatusPosted
		mirror.CreatedAt = now
		mirrors = append(mirrors, mirror)

		if dir == models.DirectionDebit {
			totalDebit = totalDebit.Add(mirror.Amount)
		} else {
			totalCredit = totalCredit.Add(mirror.Amount)
		}
		deltas[orig.AccountID] = deltas[orig.AccountID].Add(models.SignedAmount(orig.Class, dir, orig.Amount))
	}

	if err := s.commitWithRetry(ctx, func() error {
		return s.ledger.CommitReversal(ctx, reference, mirrors, deltas)
	}); err != nil {
		metrics.ReversalsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		s.auditFailure("reversal rejected", actor, "", reference, nil, err)
		return models.PostingResult{}, err
	}

	metrics.ReversalsTotal.WithLabelValues("reversed").Inc()
	s.audit("reversal committed", actor, "", reversalRef, mirrors)
	if s.cache != nil && len(posted) > 0 {
		s.cache.InvalidateScope(ctx, posted[0].Scope.BankID, posted[0].Scope.BranchID)
	}

	return models.PostingResult{
		Reference:   reversalRef,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		Entries:     mirrors,
	}, nil
}

// resolveAccount walks exact scope, then bank-wide scope, then creates a
// fresh zero-balance instance at the requested scope.
func (s *PostingService) resolveAccount(ctx context.Context, scope models.Scope, number string) (models.Account, error) {
	account, err := s.ledger.FindAccount(ctx, scope, number)
	if err == nil {
		return account, nil
	}
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		return models.Account{}, err
	}

	if scope.BranchID != "" {
		account, err = s.ledger.FindAccount(ctx, scope.BankWide(), number)
		if err == nil {
			return account, nil
		}
		if !apperrors.IsKind(err, apperrors.KindNotFound) {
			return models.Account{}, err
		}
	}

	chart, err := s.chart.GetChartAccount(ctx, number)
	if err != nil || chart.Deleted {
		return models.Account{}, apperrors.Newf(apperrors.KindConfiguration,
			"rule targets unknown chart account %s", number)
	}

	now := time.Now().UTC()
	return s.ledger.FindOrCreateAccount(ctx, models.Account{
		ID:               uuid.NewString(),
		Scope:            scope,
		Number:           chart.Number,
		Name:             chart.Name,
		Class:            chart.Class,
		Balance:          decimal.Zero,
		DefaultDirection: models.NaturalDirection(chart.Class),
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (s *PostingService) commitWithRetry(ctx context.Context, commit func() error) error {
	var err error
	for attempt := 0; attempt < s.retryBudget; attempt++ {
		err = commit()
		if err == nil || !apperrors.IsKind(err, apperrors.KindConflict) {
			return err
		}
		s.logger.Warn("balance conflict, retrying commit", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return err
}

func (s *PostingService) audit(msg, actor, eventCode, reference string, entries []models.AccountingEntry) {
	fields := []zap.Field{
		zap.String("actor", actor),
		zap.String("reference", reference),
	}
	if eventCode != "" {
		fields = append(fields, zap.String("event_code", eventCode))
	}
	for _, e := range entries {
		fields = append(fields, zap.String("line_"+e.ID,
			string(e.Direction)+" "+e.Number+" "+e.Amount.String()))
	}
	s.logger.Info(msg, fields...)
}

func (s *PostingService) auditFailure(msg, actor, eventCode, reference string, lines []models.AmountLine, err error) {
	fields := []zap.Field{
		zap.String("actor", actor),
		zap.String("reference", reference),
		zap.Error(err),
	}
	if eventCode != "" {
		fields = append(fields, zap.String("event_code", eventCode))
	}
	for _, l := range lines {
		fields = append(fields, zap.String("line_"+l.Attribute, l.Amount.String()))
	}
	s.logger.Warn(msg, fields...)
}

func (s *PostingService) logImbalance(req models.PostingRequest, entries []models.AccountingEntry, debit, credit decimal.Decimal) {
	fields := []zap.Field{
		zap.String("event_code", req.EventCode),
		zap.String("reference", req.Reference),
		zap.String("total_debit", debit.String()),
		zap.String("total_credit", credit.String()),
	}
	for _, e := range entries {
		fields = append(fields, zap.String("line_"+e.Number,
			string(e.Direction)+" "+e.Attribute+" "+e.Amount.String()))
	}
	s.logger.Error("posting imbalance", fields...)
}

func hasRole(entries []models.AccountingRuleEntry, role models.RuleEntryRole) bool {
	for _, e := range entries {
		if e.Role == role {
			return true
		}
	}
	return false
}

func outcomeLabel(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindConfiguration:
		return "configuration_error"
	case apperrors.KindImbalance:
		return "imbalance"
	case apperrors.KindDuplicate:
		return "duplicate"
	case apperrors.KindConflict:
		return "conflict"
	case apperrors.KindValidation:
		return "validation_error"
	case apperrors.KindNotFound:
		return "not_found"
	case apperrors.KindAlreadyReversed:
		return "already_reversed"
	default:
		return "storage_error"
	}
}
