package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProctor_QueuesAndTallies(t *testing.T) {
	mr, rdb := newRedis(t)
	f := newFixture(t, rdb)
	tt := f.createTest(t, twoQuestionTest())
	ac := f.issue(t, tt.ID.String(), nil)

	svc := NewProctorService(f.codes, f.store.ProctorEvents(), rdb, zeroLog())

	code, err := svc.Authorize(context.Background(), ac.Code)
	require.NoError(t, err)

	require.NoError(t, svc.Record(context.Background(), code, model.ProctorEventVisibilityLost))
	require.NoError(t, svc.Record(context.Background(), code, model.ProctorEventVisibilityLost))
	require.NoError(t, svc.Record(context.Background(), code, model.ProctorEventVisibilityRestored))

	queued, err := mr.List(config.WorkerKey.PersistProctorEventsQueue)
	require.NoError(t, err)
	require.Len(t, queued, 3)

	var ev model.ProctorEvent
	require.NoError(t, json.Unmarshal([]byte(queued[0]), &ev))
	assert.Equal(t, code, ev.AccessCode)
	assert.Equal(t, model.ProctorEventVisibilityLost, ev.Kind)

	tally, err := svc.Tally(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tally["visibility_lost"])
	assert.Equal(t, int64(1), tally["visibility_restored"])

	// Nothing is written directly while the queue is available.
	assert.Empty(t, f.store.Events())
}

func TestProctor_WithoutRedisWritesThrough(t *testing.T) {
	f := newFixture(t, nil)
	tt := f.createTest(t, twoQuestionTest())
	ac := f.issue(t, tt.ID.String(), nil)

	svc := NewProctorService(f.codes, f.store.ProctorEvents(), nil, zeroLog())
	require.NoError(t, svc.Record(context.Background(), ac.Code, model.ProctorEventVisibilityLost))

	events := f.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ac.Code, events[0].AccessCode)

	tally, err := svc.Tally(context.Background(), ac.Code)
	require.NoError(t, err)
	assert.Empty(t, tally)
}

func TestProctor_RejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)
	tt := f.createTest(t, twoQuestionTest())
	ac := f.issue(t, tt.ID.String(), nil)
	svc := NewProctorService(f.codes, f.store.ProctorEvents(), nil, zeroLog())

	assert.ErrorIs(t, svc.Record(context.Background(), ac.Code, "screenshot"), ErrUnknownProctorEvent)

	_, err := svc.Authorize(context.Background(), "ZZZZZZ")
	assert.ErrorIs(t, err, ErrCodeNotFound)

	require.NoError(t, f.codes.Consume(context.Background(), ac.Code))
	_, err = svc.Authorize(context.Background(), ac.Code)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestAuth_LoginAndValidate(t *testing.T) {
	f := newFixture(t, nil)
	auth := NewAuthService(testConfig(), f.store.Admins(), zeroLog())

	admin, err := auth.CreateAdmin(context.Background(), "examiner", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", admin.PasswordHash)

	resp, err := auth.Login(context.Background(), &model.AdminLoginRequest{Username: "examiner", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, resp.Admin.ID)

	claims, err := auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AdminID)
	assert.Equal(t, "examiner", claims.Username)

	profile, err := auth.Profile(context.Background(), claims.AdminID)
	require.NoError(t, err)
	assert.Equal(t, "examiner", profile.Username)
}

func TestAuth_RejectsBadCredentials(t *testing.T) {
	f := newFixture(t, nil)
	auth := NewAuthService(testConfig(), f.store.Admins(), zeroLog())
	_, err := auth.CreateAdmin(context.Background(), "examiner", "s3cret-pass")
	require.NoError(t, err)

	_, err = auth.Login(context.Background(), &model.AdminLoginRequest{Username: "examiner", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(context.Background(), &model.AdminLoginRequest{Username: "nobody", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuth_RejectsForeignTokens(t *testing.T) {
	f := newFixture(t, nil)
	auth := NewAuthService(testConfig(), f.store.Admins(), zeroLog())

	other := testConfig()
	other.JWTSecret = "someone-else"
	foreign := NewAuthService(other, f.store.Admins(), zeroLog())
	token, err := foreign.GenerateAdminToken(&model.Admin{ID: 1, Username: "x"})
	require.NoError(t, err)
	_, err = auth.ValidateToken(token)
	assert.Error(t, err)

	wrongType := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		TokenType:        "student",
	})
	signed, err := wrongType.SignedString([]byte(testConfig().JWTSecret))
	require.NoError(t, err)
	_, err = auth.ValidateToken(signed)
	assert.Error(t, err)
}
