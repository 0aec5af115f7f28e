package service

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"budget-integrity-ledger/internal/core/domain"
	"budget-integrity-ledger/internal/core/ports"
	"budget-integrity-ledger/pkg/apperror"

	"github.com/gowebpki/jcs"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
)

// lineLeaf is the canonical record of one budget line. Amounts use the
// fixed four-decimal form so 100 and 100.00 hash the same.
type lineLeaf struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	ParentID  string `json:"parent_id"`
	Level     int    `json:"level"`
	Committed string `json:"committed"`
	Reserved  string `json:"reserved"`
	Spent     string `json:"spent"`
}

// approvalDocument is what the approval hash signs.
type approvalDocument struct {
	Kind        string `json:"kind"`
	Algorithm   string `json:"algorithm"`
	BudgetID    string `json:"budget_id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	GeneratedBy string `json:"generated_by"`
	GeneratedAt string `json:"generated_at"`
	LineCount   int    `json:"line_count"`
	LinesRoot   string `json:"lines_root"`
}

// executionDocument is what the execution hash signs. It is chained to the
// approval hash and carries no timestamp, so recomputing it over unchanged
// lines gives the same value.
type executionDocument struct {
	Kind         string `json:"kind"`
	Algorithm    string `json:"algorithm"`
	BudgetID     string `json:"budget_id"`
	ApprovalHash string `json:"approval_hash"`
	LineCount    int    `json:"line_count"`
	LinesRoot    string `json:"lines_root"`
}

// IntegrityServiceImpl implements ports.IntegrityService.
type IntegrityServiceImpl struct {
	digester *digester
	metrics  integrityMetrics
	log      zerolog.Logger
}

type integrityOptions struct {
	key      []byte
	provider metric.MeterProvider
}

// IntegrityOption configures NewIntegrityService.
type IntegrityOption func(*integrityOptions)

// WithIntegrityKey sets the key of keyed algorithms.
func WithIntegrityKey(key []byte) IntegrityOption {
	return func(o *integrityOptions) { o.key = key }
}

// WithMeterProvider overrides the global OpenTelemetry meter provider.
func WithMeterProvider(p metric.MeterProvider) IntegrityOption {
	return func(o *integrityOptions) { o.provider = p }
}

// NewIntegrityService creates an integrity engine for one algorithm.
func NewIntegrityService(algorithm string, log zerolog.Logger, opts ...IntegrityOption) (*IntegrityServiceImpl, error) {
	var o integrityOptions
	for _, opt := range opts {
		opt(&o)
	}

	d, err := newDigester(algorithm, o.key)
	if err != nil {
		return nil, err
	}
	m, err := newIntegrityMetrics(o.provider)
	if err != nil {
		return nil, fmt.Errorf("integrity metrics: %w", err)
	}
	return &IntegrityServiceImpl{digester: d, metrics: m, log: log}, nil
}

// Algorithm returns the versioned name stamped on new seals.
func (s *IntegrityServiceImpl) Algorithm() string {
	return s.digester.name
}

// GenerateApprovalHash digests the budget as it stands at approval time.
func (s *IntegrityServiceImpl) GenerateApprovalHash(budget *domain.Budget, lines []*domain.BudgetLine, actor string, at time.Time) (string, error) {
	if budget.IsSealed() {
		return "", apperror.ErrApprovalHashAlreadySet(budget.ID.String())
	}
	return s.approvalDigest(budget, lines, actor, at)
}

// GenerateExecutionHash digests the current financial state of a sealed budget.
func (s *IntegrityServiceImpl) GenerateExecutionHash(budget *domain.Budget, lines []*domain.BudgetLine) (string, error) {
	if !budget.IsSealed() {
		return "", apperror.ErrBudgetNotSealed(budget.ID.String())
	}
	return s.executionDigest(budget, lines)
}

// Seal generates the approval hash and writes it onto the budget.
func (s *IntegrityServiceImpl) Seal(budget *domain.Budget, lines []*domain.BudgetLine, actor string, at time.Time) error {
	at = domain.SealTime(at)
	hash, err := s.GenerateApprovalHash(budget, lines, actor, at)
	if err != nil {
		return err
	}
	return budget.Seal(hash, s.Algorithm(), actor, at)
}

// Validate recomputes the digest the stored execution hash should equal.
// While no transaction has refreshed it, that is the approval digest.
func (s *IntegrityServiceImpl) Validate(budget *domain.Budget, lines []*domain.BudgetLine) ports.IntegrityVerdict {
	verdict := s.validate(budget, lines)
	s.metrics.recordValidation(verdict.Passed, verdict.Reason)
	return verdict
}

func (s *IntegrityServiceImpl) validate(budget *domain.Budget, lines []*domain.BudgetLine) ports.IntegrityVerdict {
	verdict := ports.IntegrityVerdict{Algorithm: s.Algorithm()}
	if !budget.IsSealed() {
		verdict.Reason = domain.ViolationNotSealed
		return verdict
	}

	rec := budget.Integrity
	verdict.Expected = rec.ExecutionHash
	if rec.Algorithm != s.Algorithm() {
		verdict.Algorithm = rec.Algorithm
		verdict.Reason = domain.ViolationAlgorithmMismatch
		return verdict
	}

	var (
		actual string
		err    error
	)
	if rec.Pristine() {
		actual, err = s.approvalDigest(budget, lines, rec.GeneratedBy, rec.GeneratedAt)
	} else {
		actual, err = s.executionDigest(budget, lines)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("budget_id", budget.ID.String()).Msg("cannot canonicalize budget for validation")
		verdict.Reason = domain.ViolationHashMismatch
		return verdict
	}

	verdict.Actual = actual
	verdict.Passed = subtle.ConstantTimeCompare([]byte(actual), []byte(rec.ExecutionHash)) == 1
	if !verdict.Passed {
		verdict.Reason = domain.ViolationHashMismatch
	}
	return verdict
}

func (s *IntegrityServiceImpl) approvalDigest(budget *domain.Budget, lines []*domain.BudgetLine, actor string, at time.Time) (string, error) {
	started := time.Now()
	root, err := s.linesRoot(budget, lines)
	if err != nil {
		return "", err
	}
	doc := approvalDocument{
		Kind:        "budget-approval",
		Algorithm:   s.Algorithm(),
		BudgetID:    budget.ID.String(),
		ProjectID:   budget.ProjectID.String(),
		Name:        budget.Name,
		Currency:    budget.Currency,
		GeneratedBy: actor,
		GeneratedAt: domain.SealTime(at).Format(time.RFC3339Nano),
		LineCount:   len(lines),
		LinesRoot:   hex.EncodeToString(root),
	}
	sum, err := s.digestDocument(doc)
	if err != nil {
		return "", err
	}
	s.metrics.recordHash("approval", s.Algorithm(), started)
	return sum, nil
}

func (s *IntegrityServiceImpl) executionDigest(budget *domain.Budget, lines []*domain.BudgetLine) (string, error) {
	started := time.Now()
	root, err := s.linesRoot(budget, lines)
	if err != nil {
		return "", err
	}
	doc := executionDocument{
		Kind:         "budget-execution",
		Algorithm:    s.Algorithm(),
		BudgetID:     budget.ID.String(),
		ApprovalHash: budget.Integrity.ApprovalHash,
		LineCount:    len(lines),
		LinesRoot:    hex.EncodeToString(root),
	}
	sum, err := s.digestDocument(doc)
	if err != nil {
		return "", err
	}
	s.metrics.recordHash("execution", s.Algorithm(), started)
	return sum, nil
}

func (s *IntegrityServiceImpl) linesRoot(budget *domain.Budget, lines []*domain.BudgetLine) ([]byte, error) {
	leaves := make([][]byte, 0, len(lines))
	for _, l := range lines {
		if l.BudgetID != budget.ID {
			return nil, domain.NewValidationError("lines", fmt.Sprintf("line %s belongs to budget %s", l.ID, l.BudgetID))
		}
		leaf := lineLeaf{
			ID:        l.ID.String(),
			Code:      l.Code,
			Level:     l.Level,
			Committed: l.Committed.String(),
			Reserved:  l.Reserved.String(),
			Spent:     l.Spent.String(),
		}
		if l.ParentID != nil {
			leaf.ParentID = l.ParentID.String()
		}
		canonical, err := canonicalJSON(leaf)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, s.digester.sum(canonical))
	}
	return s.digester.merkleRoot(leaves), nil
}

func (s *IntegrityServiceImpl) digestDocument(doc any) (string, error) {
	canonical, err := canonicalJSON(doc)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(s.digester.sum(canonical)), nil
}

// canonicalJSON renders v in RFC 8785 form.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal canonical record: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize record: %w", err)
	}
	return out, nil
}
