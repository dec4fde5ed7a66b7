package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vertexautomation/site-server/internal/config"
	"github.com/vertexautomation/site-server/internal/metrics"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository"
	"github.com/vertexautomation/site-server/internal/util"
)

// CodePolicy is the shape of a code issued on one path.
type CodePolicy struct {
	Name   string
	Length int
	TTL    time.Duration
}

var (
	LoginCodePolicy   = CodePolicy{Name: "login", Length: config.LoginCodeLength, TTL: config.LoginCodeTTL}
	RenewalCodePolicy = CodePolicy{Name: "renewal", Length: config.RenewalCodeLength, TTL: config.RenewalCodeTTL}
)

const renewalBatchSize = 100

type RenewalResult struct {
	Renewed int `json:"renewed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// AccessCodeLedger issues and redeems one-time access codes. The ledger is
// append-only: codes are marked used, never deleted.
//
// Expiry is always judged by the database clock.
type AccessCodeLedger struct {
	repo repository.AccessCodeRepository
}

func NewAccessCodeLedger(repo repository.AccessCodeRepository) *AccessCodeLedger {
	return &AccessCodeLedger{repo: repo}
}

// Issue inserts a fresh unused code. Other outstanding codes for the user are
// left alone.
func (l *AccessCodeLedger) Issue(ctx context.Context, userID string, policy CodePolicy) (*model.AccessCode, error) {
	code, err := util.GenerateCode(policy.Length)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	ac, err := l.repo.Create(ctx, model.CreateAccessCodeParams{
		UserID: userID,
		Code:   code,
		TTL:    policy.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("insert access code: %w", err)
	}
	metrics.RecordCodeIssued(policy.Name)
	return ac, nil
}

// Verify looks a code up without changing it. It returns nil when nothing
// matches, whatever the reason.
func (l *AccessCodeLedger) Verify(ctx context.Context, userID, submitted string) (*model.AccessCode, error) {
	code := util.NormalizeCode(submitted)
	if code == "" {
		return nil, nil
	}
	ac, err := l.repo.FindValid(ctx, userID, code)
	if err != nil {
		return nil, fmt.Errorf("find access code: %w", err)
	}
	return ac, nil
}

func (l *AccessCodeLedger) MarkUsed(ctx context.Context, id string) error {
	if _, err := l.repo.MarkUsed(ctx, id); err != nil {
		return fmt.Errorf("mark access code used: %w", err)
	}
	return nil
}

// Consume verifies and marks used in one step. Of two concurrent callers
// with the same code, only one gets it back.
func (l *AccessCodeLedger) Consume(ctx context.Context, userID, submitted string) (*model.AccessCode, error) {
	code := util.NormalizeCode(submitted)
	if code == "" {
		return nil, nil
	}
	ac, err := l.repo.Consume(ctx, userID, code)
	if err != nil {
		return nil, fmt.Errorf("consume access code: %w", err)
	}
	return ac, nil
}

// RenewExpired replaces every expired unused code with a fresh renewal code
// for the same user. A row that fails is logged, left unused for the next run,
// and does not hold back the rows after it.
func (l *AccessCodeLedger) RenewExpired(ctx context.Context) (RenewalResult, error) {
	var (
		result RenewalResult
		cursor *model.ExpiredCodeCursor
	)

	for {
		batch, err := l.repo.FindExpiredUnused(ctx, cursor, renewalBatchSize)
		if err != nil {
			return result, fmt.Errorf("find expired codes: %w", err)
		}

		for _, stale := range batch {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			l.renewOne(ctx, stale, &result)
		}

		if len(batch) < renewalBatchSize {
			break
		}
		last := batch[len(batch)-1]
		cursor = &model.ExpiredCodeCursor{ExpiresAt: last.ExpiresAt, ID: last.ID}
	}

	metrics.RecordRenewal("renewed", result.Renewed)
	metrics.RecordRenewal("failed", result.Failed)
	if result.Renewed > 0 || result.Failed > 0 {
		log.Info().
			Int("renewed", result.Renewed).
			Int("skipped", result.Skipped).
			Int("failed", result.Failed).
			Msg("access code renewal finished")
	}
	return result, nil
}

func (l *AccessCodeLedger) renewOne(ctx context.Context, stale model.AccessCode, result *RenewalResult) {
	code, err := util.GenerateCode(RenewalCodePolicy.Length)
	if err == nil {
		var replacement *model.AccessCode
		replacement, err = l.repo.Replace(ctx, stale.ID, model.CreateAccessCodeParams{
			UserID: stale.UserID,
			Code:   code,
			TTL:    RenewalCodePolicy.TTL,
		})
		if err == nil && replacement == nil {
			result.Skipped++
			return
		}
	}
	if err != nil {
		log.Error().Err(err).Str("codeId", stale.ID).Str("userId", stale.UserID).Msg("failed to renew access code")
		result.Failed++
		return
	}
	metrics.RecordCodeIssued(RenewalCodePolicy.Name)
	result.Renewed++
}
