package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vertexautomation/site-server/internal/cookieconsent"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/model"
)

func TestResolvePreferences(t *testing.T) {
	tests := []struct {
		mode      ConsentMode
		analytics bool
		marketing bool
		want      model.CookiePreferences
	}{
		{ConsentAcceptAll, false, false, model.CookiePreferences{Essential: true, Analytics: true, Marketing: true}},
		{ConsentEssentialOnly, true, true, model.CookiePreferences{Essential: true}},
		{ConsentCustom, true, false, model.CookiePreferences{Essential: true, Analytics: true}},
	}
	for _, tc := range tests {
		t.Run(string(tc.mode), func(t *testing.T) {
			got, err := ResolvePreferences(tc.mode, tc.analytics, tc.marketing)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ResolvePreferences("everything", false, false)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
}

func TestConsentService_Check(t *testing.T) {
	ctx := context.Background()
	legal, _, consents := newLegalService()
	svc := NewConsentService(consents, legal)

	consents.On("FindStatus", ctx, "u1").Return([]model.ConsentStatus{
		{DocumentType: model.DocumentPrivacyPolicy, NeedsConsent: true, LatestVersion: "2"},
		{DocumentType: model.DocumentTermsOfService, NeedsConsent: false, LatestVersion: "1"},
	}, nil)
	consents.On("FindStatus", ctx, "u2").Return([]model.ConsentStatus{}, nil)

	check, err := svc.Check(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, check.NeedsConsent)
	require.Len(t, check.Pending, 1)
	assert.Equal(t, model.DocumentPrivacyPolicy, check.Pending[0].DocumentType)

	check, err = svc.Check(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, check.NeedsConsent)
	assert.NotNil(t, check.Pending)
}

func TestConsentService_Submit(t *testing.T) {
	ctx := context.Background()
	active := []model.LegalDocument{
		{ID: "d-priv", DocumentType: model.DocumentPrivacyPolicy, Version: "2"},
		{ID: "d-tos", DocumentType: model.DocumentTermsOfService, Version: "1"},
	}

	t.Run("one record per active document", func(t *testing.T) {
		legal, legalRepo, consents := newLegalService()
		svc := NewConsentService(consents, legal)
		legalRepo.On("FindAllActive", ctx).Return(active, nil)
		consents.On("RecordConsents", ctx, mock.MatchedBy(func(ps []model.CreateConsentParams) bool {
			if len(ps) != 2 {
				return false
			}
			return ps[0].DocumentID == "d-priv" && ps[0].DocumentVersion == "2" &&
				ps[1].DocumentID == "d-tos" && ps[1].DocumentVersion == "1" &&
				ps[0].CookiePreferences == model.CookiePreferences{Essential: true}
		})).Return([]model.ConsentRecord{{ID: "c1"}, {ID: "c2"}}, nil)

		result, err := svc.Submit(ctx, SubmitConsentRequest{UserID: "u1", Mode: ConsentEssentialOnly})
		require.NoError(t, err)
		assert.Len(t, result.Records, 2)
		assert.Equal(t, cookieconsent.SchemaVersion, result.State.Version)
		assert.True(t, result.State.Preferences.Essential)
		assert.False(t, result.State.Preferences.Analytics)
	})

	t.Run("write failure fails closed", func(t *testing.T) {
		legal, legalRepo, consents := newLegalService()
		svc := NewConsentService(consents, legal)
		legalRepo.On("FindAllActive", ctx).Return(active, nil)
		consents.On("RecordConsents", ctx, mock.Anything).Return(nil, errors.New("insert failed"))

		result, err := svc.Submit(ctx, SubmitConsentRequest{UserID: "u1", Mode: ConsentAcceptAll})
		require.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("no active documents writes nothing", func(t *testing.T) {
		legal, legalRepo, consents := newLegalService()
		svc := NewConsentService(consents, legal)
		legalRepo.On("FindAllActive", ctx).Return([]model.LegalDocument{}, nil)

		result, err := svc.Submit(ctx, SubmitConsentRequest{UserID: "u1", Mode: ConsentAcceptAll})
		require.NoError(t, err)
		assert.Empty(t, result.Records)
		consents.AssertNotCalled(t, "RecordConsents", mock.Anything, mock.Anything)
	})

	t.Run("anonymous submission is rejected", func(t *testing.T) {
		legal, _, consents := newLegalService()
		svc := NewConsentService(consents, legal)

		_, err := svc.Submit(ctx, SubmitConsentRequest{Mode: ConsentAcceptAll})
		assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))
	})
}
