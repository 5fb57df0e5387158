package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/server/config"
	"github.com/dmitrijs2005/bitcor/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCredentialService(t *testing.T, rm *fakeRepoManager, b *memBackend, cfg *config.Config) *CredentialService {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	return NewCredentialService(newSQLMockDB(t), rm, newVaultClient(b), cfg, nopLogger())
}

func TestCredentialUpsert_SecondPayloadReplacesFirst(t *testing.T) {
	rm, b := newFakeRepoManager(), newMemBackend()
	s := newCredentialService(t, rm, b, nil)
	ctx := context.Background()

	addr1, err := s.Upsert(ctx, "u1", models.ProviderAlpaca, []byte(`{"key_id":"K1","secret":"S1"}`))
	require.NoError(t, err)
	addr2, err := s.Upsert(ctx, "u1", models.ProviderAlpaca, []byte(`{"key_id":"K2","secret":"S2","paper":false}`))
	require.NoError(t, err)

	assert.Equal(t, "/bitcor/alpaca/u1", addr1)
	assert.Equal(t, addr1, addr2)
	require.Len(t, b.objects, 1)
	assert.JSONEq(t, `{"key_id":"K2","secret":"S2","paper":false}`, string(b.objects[addr1]))
	require.Len(t, rm.c.pointers, 1)
	assert.Equal(t, addr1, rm.c.pointers["u1|alpaca"].SecretAddress)
}

func TestCredentialUpsert_IdenticalIsIdempotent(t *testing.T) {
	rm, b := newFakeRepoManager(), newMemBackend()
	s := newCredentialService(t, rm, b, nil)
	body := []byte(`{"api_key":"pk"}`)

	addr1, err := s.Upsert(context.Background(), "u1", models.ProviderPolygon, body)
	require.NoError(t, err)
	addr2, err := s.Upsert(context.Background(), "u1", models.ProviderPolygon, body)
	require.NoError(t, err)

	assert.Equal(t, addr1, addr2)
	assert.Len(t, b.objects, 1)
	assert.Len(t, rm.c.pointers, 1)
}

func TestCredentialUpsert_DefaultsPaperToTrue(t *testing.T) {
	rm, b := newFakeRepoManager(), newMemBackend()
	s := newCredentialService(t, rm, b, nil)

	addr, err := s.Upsert(context.Background(), "u1", models.ProviderAlpaca, []byte(`{"key_id":"K","secret":"S"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"key_id":"K","secret":"S","paper":true}`, string(b.objects[addr]))
}

func TestCredentialUpsert_Rejections(t *testing.T) {
	rm, b := newFakeRepoManager(), newMemBackend()
	s := newCredentialService(t, rm, b, nil)
	ctx := context.Background()

	_, err := s.Upsert(ctx, "u1", "binance", []byte(`{}`))
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Upsert(ctx, "u1", models.ProviderAlpaca, []byte(`{"key_id":"K"}`))
	assert.ErrorIs(t, err, common.ErrInvalidPayload)

	_, err = s.Upsert(ctx, "u1", models.ProviderPolygon, []byte(`not json`))
	assert.ErrorIs(t, err, common.ErrInvalidPayload)

	assert.Empty(t, b.objects)
	assert.Empty(t, rm.c.pointers)
}

func TestCredentialUpsert_VaultUnavailable(t *testing.T) {
	rm, b := newFakeRepoManager(), newMemBackend()
	b.err = errors.New("connection reset")
	s := newCredentialService(t, rm, b, nil)

	_, err := s.Upsert(context.Background(), "u1", models.ProviderPolygon, []byte(`{"api_key":"pk"}`))
	assert.ErrorIs(t, err, common.ErrVaultUnavailable)
	assert.Equal(t, 0, rm.c.upserts)
}

func TestCredentialUpsert_PointerFailureThenRetry(t *testing.T) {
	rm, b := newFakeRepoManager(), newMemBackend()
	rm.c.failUpserts = 1
	s := newCredentialService(t, rm, b, nil)
	body := []byte(`{"api_key":"pk"}`)

	_, err := s.Upsert(context.Background(), "u1", models.ProviderPolygon, body)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.Len(t, b.objects, 1, "orphan stays in the vault")
	assert.Empty(t, rm.c.pointers)

	addr, err := s.Upsert(context.Background(), "u1", models.ProviderPolygon, body)
	require.NoError(t, err)
	assert.Len(t, b.objects, 1)
	require.Len(t, rm.c.pointers, 1)
	assert.Equal(t, addr, rm.c.pointers["u1|polygon"].SecretAddress)
}

func TestCredentialUpsert_CompensatesOrphanWhenEnabled(t *testing.T) {
	rm, b := newFakeRepoManager(), newMemBackend()
	rm.c.failUpserts = 1
	cfg := testConfig()
	cfg.CompensateOrphans = true
	s := newCredentialService(t, rm, b, cfg)

	_, err := s.Upsert(context.Background(), "u1", models.ProviderPolygon, []byte(`{"api_key":"pk"}`))
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.Empty(t, b.objects)
}

func TestCredentialUpsert_UnknownUser(t *testing.T) {
	rm, b := newFakeRepoManager(), newMemBackend()
	rm.c.failUpserts = 1
	rm.c.upsertErr = fmt.Errorf("user u1: %w", common.ErrConstraintViolation)
	s := newCredentialService(t, rm, b, nil)

	_, err := s.Upsert(context.Background(), "u1", models.ProviderPolygon, []byte(`{"api_key":"pk"}`))
	assert.ErrorIs(t, err, common.ErrConstraintViolation)
	assert.NotErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestCredentialStatus_EchoesPaperNotSecret(t *testing.T) {
	rm, b := newFakeRepoManager(), newMemBackend()
	s := newCredentialService(t, rm, b, nil)
	ctx := context.Background()

	_, err := s.Upsert(ctx, "u1", models.ProviderAlpaca, []byte(`{"key_id":"KEYID","secret":"TOPSECRET","paper":true}`))
	require.NoError(t, err)

	st, err := s.Status(ctx, "u1", models.ProviderAlpaca)
	require.NoError(t, err)
	assert.True(t, st.HasSecret)
	assert.Equal(t, models.ProviderAlpaca, st.Provider)
	assert.Equal(t, map[string]any{"paper": true}, st.Fields)
	assert.NotContains(t, fmt.Sprintf("%+v", st), "TOPSECRET")
	assert.NotContains(t, fmt.Sprintf("%+v", st), "KEYID")
}

func TestCredentialStatus_Missing(t *testing.T) {
	rm, b := newFakeRepoManager(), newMemBackend()
	s := newCredentialService(t, rm, b, nil)
	ctx := context.Background()

	_, err := s.Status(ctx, "u1", models.ProviderPolygon)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Status(ctx, "u1", "binance")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// pointer present, vault object gone
	require.NoError(t, rm.c.Upsert(ctx, "u1", models.ProviderPolygon, "/bitcor/polygon/u1"))
	st, err := s.Status(ctx, "u1", models.ProviderPolygon)
	require.NoError(t, err)
	assert.False(t, st.HasSecret)
	assert.Empty(t, st.Fields)
}

func TestCredentialStatus_Failures(t *testing.T) {
	rm, b := newFakeRepoManager(), newMemBackend()
	s := newCredentialService(t, rm, b, nil)
	ctx := context.Background()

	_, err := s.Upsert(ctx, "u1", models.ProviderPolygon, []byte(`{"api_key":"pk"}`))
	require.NoError(t, err)

	b.err = errors.New("timeout")
	_, err = s.Status(ctx, "u1", models.ProviderPolygon)
	assert.ErrorIs(t, err, common.ErrVaultUnavailable)

	rm.c.getErr = errBoom{}
	_, err = s.Status(ctx, "u1", models.ProviderPolygon)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestCredentialList(t *testing.T) {
	rm, b := newFakeRepoManager(), newMemBackend()
	s := newCredentialService(t, rm, b, nil)
	ctx := context.Background()

	_, err := s.Upsert(ctx, "u1", models.ProviderPolygon, []byte(`{"api_key":"pk"}`))
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "u1", models.ProviderAlpaca, []byte(`{"key_id":"K","secret":"S"}`))
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "u2", models.ProviderAlpaca, []byte(`{"key_id":"K","secret":"S"}`))
	require.NoError(t, err)

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.ProviderAlpaca, list[0].Provider)
	assert.Equal(t, models.ProviderPolygon, list[1].Provider)
}
