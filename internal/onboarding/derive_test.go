package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/role"
)

func completeRecord() Record {
	return Record{
		Status:     StatusOnboarding,
		Personal:   Personal{Bio: "travel and food"},
		Social:     []SocialAccount{{Provider: "instagram", Handle: "@ana", Followers: 1200}},
		Categories: []Category{{Parent: "lifestyle", Slug: "travel", Name: "Travel"}},
		Portfolio:  Portfolio{URL: "https://ana.example.com"},
		Payment:    Payment{BankName: "First Bank"},
	}
}

func mustFlow(t *testing.T, r role.Role) Flow {
	t.Helper()
	f, err := FlowFor(r)
	require.NoError(t, err)
	return f
}

func TestPersonalPredicateIsAnyField(t *testing.T) {
	cases := []struct {
		name     string
		personal Personal
		want     bool
	}{
		{"empty", Personal{}, false},
		{"whitespace only", Personal{Bio: "   "}, false},
		{"bio only", Personal{Bio: "hello"}, true},
		{"country only", Personal{Country: "PT"}, true},
		{"display name is not an influencer field", Personal{DisplayName: "Ana"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, influencerPersonalComplete(Record{Personal: tc.personal}))
		})
	}

	assert.True(t, vendorPersonalComplete(Record{Personal: Personal{Website: "acme.io"}}))
	assert.True(t, agencyPersonalComplete(Record{Personal: Personal{DisplayName: "Talent Co"}}))
	assert.False(t, agencyPersonalComplete(Record{Personal: Personal{Gender: "f"}}))
}

func TestPortfolioPredicate(t *testing.T) {
	cases := []struct {
		name string
		p    Portfolio
		want bool
	}{
		{"empty", Portfolio{}, false},
		{"valid url", Portfolio{URL: "https://example.com/work"}, true},
		{"relative url", Portfolio{URL: "example.com"}, false},
		{"ftp url", Portfolio{URL: "ftp://example.com"}, false},
		{"file only", Portfolio{Files: []string{"uploads/reel.mp4"}}, true},
		{"blank file", Portfolio{Files: []string{" "}}, false},
		{"languages alone", Portfolio{Languages: []string{"en"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, portfolioComplete(Record{Portfolio: tc.p}))
		})
	}
}

func TestPaymentPredicate(t *testing.T) {
	assert.False(t, paymentComplete(Record{}))
	assert.True(t, paymentComplete(Record{Payment: Payment{AccountNumber: "123"}}))
	assert.False(t, paymentComplete(Record{Payment: Payment{Methods: []PaymentMethod{{Name: "paypal"}}}}))
	assert.True(t, paymentComplete(Record{Payment: Payment{Methods: []PaymentMethod{
		{Name: "paypal"},
		{Name: "upi", Details: "ana@upi"},
	}}}))
}

func TestDeriveMatchesPredicates(t *testing.T) {
	for _, r := range []role.Role{role.Influencer, role.Vendor, role.Agency} {
		flow := mustFlow(t, r)
		rec := completeRecord()
		rec.Categories = nil

		v, _ := flow.Derive(rec)
		for i, s := range flow.Steps {
			assert.Equal(t, s.Complete(rec), v[i], "role %s step %s", r, s.ID)
		}
	}
}

func TestDeriveAllCompleteIsFinished(t *testing.T) {
	v, c := mustFlow(t, role.Influencer).Derive(completeRecord())
	assert.True(t, v.AllComplete())
	assert.Equal(t, Finished, c)
	assert.True(t, c.IsFinished())
}

func TestDeriveCursorIsFirstIncomplete(t *testing.T) {
	flow := mustFlow(t, role.Vendor)
	rec := completeRecord()
	rec.Social = nil
	rec.Payment = Payment{}

	v, c := flow.Derive(rec)
	assert.Equal(t, Vector{true, true, false, true, false}, v)
	assert.Equal(t, Cursor(flow.Index(StepSocial)), c)
}

func TestDeriveApprovalPendingOverride(t *testing.T) {
	flow := mustFlow(t, role.Influencer)
	rec := completeRecord()
	rec.Payment = Payment{}
	rec.Status = StatusApprovalPending

	v, c := flow.Derive(rec)
	assert.Equal(t, Vector{true, true, true, true, true}, v)
	assert.Equal(t, Finished, c)

	rec.Social = nil
	v, c = flow.Derive(rec)
	assert.False(t, v[flow.Index(StepSocial)])
	assert.Equal(t, Cursor(flow.Index(StepSocial)), c)
}

func TestDeriveWithoutOverrideStopsAtPayment(t *testing.T) {
	flow := mustFlow(t, role.Agency)
	rec := completeRecord()
	rec.Payment = Payment{}

	_, c := flow.Derive(rec)
	assert.Equal(t, Cursor(flow.Index(StepPayment)), c)
	assert.True(t, flow.ReadyForReview(rec))
}

func TestFlowForUnknownRole(t *testing.T) {
	_, err := FlowFor(role.Admin)
	assert.ErrorIs(t, err, role.ErrUnknownRole)
}

func TestFlowsShareStepsInDifferentOrder(t *testing.T) {
	for _, r := range []role.Role{role.Influencer, role.Vendor, role.Agency} {
		flow := mustFlow(t, r)
		for _, id := range []StepID{StepPersonal, StepSocial, StepCategories, StepPortfolio, StepPayment} {
			assert.GreaterOrEqual(t, flow.Index(id), 0, "role %s missing %s", r, id)
		}
		assert.Equal(t, StepPayment, flow.Steps[StepCount-1].ID)
	}
	assert.Equal(t, 1, mustFlow(t, role.Influencer).Index(StepSocial))
	assert.Equal(t, 2, mustFlow(t, role.Vendor).Index(StepSocial))
}

func TestDecodeRecordFailsClosedPerSection(t *testing.T) {
	body := []byte(`{
		"status": "approval_pending",
		"personal": {"bio": "hi"},
		"social": {"provider": "not-a-list"},
		"categories": [{"parent": "beauty", "slug": "skincare", "name": "Skincare"}],
		"portfolio": null
	}`)

	rec, err := DecodeRecord(body, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusApprovalPending, rec.Status)
	assert.Equal(t, "hi", rec.Personal.Bio)
	assert.Empty(t, rec.Social)
	assert.Len(t, rec.Categories, 1)
	assert.Equal(t, Portfolio{}, rec.Portfolio)
	assert.Equal(t, Payment{}, rec.Payment)

	_, err = DecodeRecord([]byte(`[1,2]`), nil)
	assert.Error(t, err)
}
