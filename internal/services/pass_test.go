package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"visitorpass/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassService_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("valid scan admits visitor", func(t *testing.T) {
		h := newHarness()
		expiry := h.now.Add(8 * time.Hour)
		v, p := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)
		h.now = h.now.Add(time.Hour)

		got, err := h.passes.Redeem(ctx, actorOf(h.guard), p.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.VisitorApproved, got.Visitor.Status)
		require.NotNil(t, got.Visitor.EntryTime)
		assert.Equal(t, h.now, *got.Visitor.EntryTime)
		require.NotNil(t, got.Pass.ApprovedBy)
		assert.Equal(t, h.guard.ID, *got.Pass.ApprovedBy)

		stored := h.store.pass(p.ID)
		require.NotNil(t, stored.ApprovedAt)
		assert.Equal(t, h.now, *stored.ApprovedAt)
		assert.Equal(t, domain.VisitorApproved, h.store.visitor(v.ID).Status)

		notes := h.store.notificationsFor(h.host.ID)
		assert.Contains(t, notes[len(notes)-1].Content, "Visitor Asha has been approved by Guard Gate Guard")
		published := h.publisher.published()
		assert.Equal(t, "visitorpass.pass.redeemed", published[len(published)-1])
	})

	t.Run("second scan is rejected", func(t *testing.T) {
		h := newHarness()
		expiry := h.now.Add(time.Hour)
		_, p := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)
		_, err := h.passes.Redeem(ctx, actorOf(h.guard), p.ID)
		require.NoError(t, err)

		_, err = h.passes.Redeem(ctx, actorOf(h.otherGuard), p.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
		assert.Equal(t, h.guard.ID, *h.store.pass(p.ID).ApprovedBy)
	})

	t.Run("expired scan is terminal and reported", func(t *testing.T) {
		h := newHarness()
		expiry := h.now.Add(time.Hour)
		v, p := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)
		h.now = expiry.Add(time.Second)

		got, err := h.passes.Redeem(ctx, actorOf(h.guard), p.ID)
		require.ErrorIs(t, err, domain.ErrExpired)
		assert.Nil(t, got)

		stored := h.store.visitor(v.ID)
		assert.Equal(t, domain.VisitorExpired, stored.Status)
		require.NotNil(t, stored.ExitTime)
		assert.Equal(t, h.now, *stored.ExitTime)
		assert.NotNil(t, h.store.pass(p.ID).ApprovedAt)

		notes := h.store.notificationsFor(h.host.ID)
		assert.Contains(t, notes[len(notes)-1].Content, "Pass for visitor Asha has expired")

		_, err = h.passes.Redeem(ctx, actorOf(h.guard), p.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	})

	t.Run("scan at the exact expiry instant is valid", func(t *testing.T) {
		h := newHarness()
		expiry := h.now.Add(time.Hour)
		_, p := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)
		h.now = expiry

		_, err := h.passes.Redeem(ctx, actorOf(h.guard), p.ID)
		assert.NoError(t, err)
	})

	t.Run("already approved visitor", func(t *testing.T) {
		h := newHarness()
		expiry := h.now.Add(time.Hour)
		v, p := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)
		_, err := h.visitors.UpdateStatus(ctx, actorOf(h.host), v.ID, domain.VisitorApproved)
		require.NoError(t, err)

		_, err = h.passes.Redeem(ctx, actorOf(h.guard), p.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyApproved)
		assert.Nil(t, h.store.pass(p.ID).ApprovedAt)
	})

	t.Run("closed visit cannot be reopened", func(t *testing.T) {
		tests := []struct {
			name  string
			steps []domain.VisitorStatus
			pass  time.Duration
		}{
			{name: "rejected, live pass", steps: []domain.VisitorStatus{domain.VisitorRejected}, pass: time.Hour},
			{name: "rejected, expired pass", steps: []domain.VisitorStatus{domain.VisitorRejected}, pass: -time.Minute},
			{name: "checked out, live pass", steps: []domain.VisitorStatus{domain.VisitorApproved, domain.VisitorExpired}, pass: time.Hour},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness()
				expiry := h.now.Add(time.Hour)
				v, p := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)
				for _, st := range tt.steps {
					_, err := h.visitors.UpdateStatus(ctx, actorOf(h.host), v.ID, st)
					require.NoError(t, err)
				}
				closed := tt.steps[len(tt.steps)-1]
				h.now = expiry.Add(-tt.pass)

				_, err := h.passes.Redeem(ctx, actorOf(h.guard), p.ID)
				require.ErrorIs(t, err, domain.ErrInvalidTransition)
				var te *domain.TransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, closed, te.From)
				assert.Equal(t, closed, h.store.visitor(v.ID).Status)
				assert.Nil(t, h.store.pass(p.ID).ApprovedAt)
			})
		}
	})

	t.Run("only guards redeem", func(t *testing.T) {
		h := newHarness()
		expiry := h.now.Add(time.Hour)
		_, p := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)
		for _, u := range []*domain.User{h.admin, h.host} {
			_, err := h.passes.Redeem(ctx, actorOf(u), p.ID)
			assert.ErrorIs(t, err, domain.ErrForbidden)
		}
	})

	t.Run("unknown pass", func(t *testing.T) {
		h := newHarness()
		_, err := h.passes.Redeem(ctx, actorOf(h.guard), "404")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("failure rolls back the pass", func(t *testing.T) {
		h := newHarness()
		expiry := h.now.Add(time.Hour)
		v, p := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)
		h.store.failNotification = errBoom

		_, err := h.passes.Redeem(ctx, actorOf(h.guard), p.ID)
		require.ErrorIs(t, err, errBoom)
		assert.Nil(t, h.store.pass(p.ID).ApprovedAt)
		assert.Equal(t, domain.VisitorPending, h.store.visitor(v.ID).Status)

		_, err = h.passes.Redeem(ctx, actorOf(h.guard), p.ID)
		assert.NoError(t, err)
	})
}

func TestPassService_Redeem_Concurrent(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	expiry := h.now.Add(time.Hour)
	_, p := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)

	const scanners = 8
	errs := make([]error, scanners)
	var wg sync.WaitGroup
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.passes.Redeem(ctx, actorOf(h.guard), p.ID)
		}(i)
	}
	wg.Wait()

	var ok, processed int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyProcessed):
			processed++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, scanners-1, processed)
}

func TestPassService_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("second outstanding pass conflicts", func(t *testing.T) {
		h := newHarness()
		expiry := h.now.Add(time.Hour)
		v, _ := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)

		_, err := h.passes.Issue(ctx, actorOf(h.host), v.ID, h.now.Add(2*time.Hour))
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, 1, h.store.passCount())
	})

	t.Run("new pass once the previous one lapsed", func(t *testing.T) {
		h := newHarness()
		expiry := h.now.Add(time.Hour)
		v, first := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)
		h.now = expiry.Add(time.Minute)

		p, err := h.passes.Issue(ctx, actorOf(h.host), v.ID, h.now.Add(time.Hour))
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, p.ID)
		assert.NotEqual(t, first.Token, p.Token)
		require.NotNil(t, p.QRCodeURL)
	})

	t.Run("expiry must be in the future", func(t *testing.T) {
		h := newHarness()
		v, _ := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", nil)
		_, err := h.passes.Issue(ctx, actorOf(h.host), v.ID, h.now)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, 0, h.store.passCount())
	})

	t.Run("other host is forbidden", func(t *testing.T) {
		h := newHarness()
		v, _ := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", nil)
		_, err := h.passes.Issue(ctx, actorOf(h.otherHost), v.ID, h.now.Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("unknown visitor", func(t *testing.T) {
		h := newHarness()
		_, err := h.passes.Issue(ctx, actorOf(h.admin), "404", h.now.Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPassService_Delete(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	expiry := h.now.Add(time.Hour)
	v, p := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)

	assert.ErrorIs(t, h.passes.Delete(ctx, actorOf(h.host), p.ID), domain.ErrForbidden)
	assert.ErrorIs(t, h.passes.Delete(ctx, actorOf(h.guard), p.ID), domain.ErrForbidden)

	require.NoError(t, h.passes.Delete(ctx, actorOf(h.admin), p.ID))
	assert.Nil(t, h.store.pass(p.ID))
	assert.False(t, h.artifacts.has(qrKey(p.ID)))
	assert.NotNil(t, h.store.visitor(v.ID))

	assert.ErrorIs(t, h.passes.Delete(ctx, actorOf(h.admin), p.ID), domain.ErrNotFound)
}

func TestPassService_ReadSide(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	expiry := h.now.Add(time.Hour)
	_, mine := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)
	_, _, err := h.visitors.Create(ctx, actorOf(h.admin), domain.CreateVisitorInput{
		Name: "Ben", Email: "ben@example.com", Phone: "9998887701", Purpose: "delivery", HostID: h.otherHost.ID, PassExpiry: &expiry,
	})
	require.NoError(t, err)
	_, err = h.passes.Redeem(ctx, actorOf(h.guard), mine.ID)
	require.NoError(t, err)

	t.Run("list scoping", func(t *testing.T) {
		issuedAt := h.now
		beforeIssue := h.now.Add(-time.Minute)
		tests := []struct {
			name   string
			actor  domain.Actor
			params domain.PassListParams
			want   int
		}{
			{"admin sees all", actorOf(h.admin), domain.PassListParams{}, 2},
			{"admin own only", actorOf(h.admin), domain.PassListParams{OwnOnly: true}, 0},
			{"host sees own", actorOf(h.host), domain.PassListParams{}, 1},
			{"guard sees redeemed", actorOf(h.guard), domain.PassListParams{}, 1},
			{"other guard sees none", actorOf(h.otherGuard), domain.PassListParams{}, 0},
			{"visitor filter", actorOf(h.admin), domain.PassListParams{VisitorID: mine.VisitorID}, 1},
			{"to is inclusive", actorOf(h.admin), domain.PassListParams{To: &issuedAt}, 2},
			{"to alone applies", actorOf(h.admin), domain.PassListParams{To: &beforeIssue}, 0},
			{"from runs through now", actorOf(h.admin), domain.PassListParams{From: &beforeIssue}, 2},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := h.passes.List(ctx, tt.actor, tt.params)
				require.NoError(t, err)
				assert.Len(t, got, tt.want)
			})
		}
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := h.passes.GetByID(ctx, actorOf(h.guard), mine.ID)
		require.NoError(t, err)
		assert.Equal(t, "Asha", got.VisitorName)

		_, err = h.passes.GetByID(ctx, actorOf(h.otherHost), mine.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = h.passes.GetByID(ctx, actorOf(h.otherGuard), mine.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("scan history", func(t *testing.T) {
		got, err := h.passes.ScanHistory(ctx, actorOf(h.guard))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, mine.ID, got[0].ID)

		_, err = h.passes.ScanHistory(ctx, actorOf(h.admin))
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestPassService_Verify(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	expiry := h.now.Add(time.Hour)
	_, p := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)

	res, err := h.passes.Verify(ctx, actorOf(h.guard), p.Token)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Reason)
	assert.Equal(t, "Asha", res.Visitor.Name)

	h.now = expiry.Add(time.Minute)
	res, err = h.passes.Verify(ctx, actorOf(h.admin), p.Token)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "pass has expired", res.Reason)
	assert.Nil(t, h.store.pass(p.ID).ApprovedAt)

	_, err = h.passes.Verify(ctx, actorOf(h.host), p.Token)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.passes.Verify(ctx, actorOf(h.guard), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPassService_Verify_RejectedVisitor(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	expiry := h.now.Add(time.Hour)
	v, p := h.createVisitor(t, actorOf(h.host), "asha@example.com", "9998887776", &expiry)
	_, err := h.visitors.UpdateStatus(ctx, actorOf(h.host), v.ID, domain.VisitorRejected)
	require.NoError(t, err)

	res, err := h.passes.Verify(ctx, actorOf(h.guard), p.Token)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "visit is closed (REJECTED)", res.Reason)
}
