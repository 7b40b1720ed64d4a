package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
)

func TestVerifySignature_RoundTrip(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	sig := Sign("whsec_test", body)

	require.NoError(t, VerifySignature("whsec_test", body, sig))
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	sig := Sign("whsec_test", body)

	err := VerifySignature("whsec_test", []byte(`{"id":"evt_2"}`), sig)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`payload`)
	sig := Sign("whsec_test", body)

	err := VerifySignature("whsec_other", body, sig)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifySignature_MissingHeader(t *testing.T) {
	err := VerifySignature("whsec_test", []byte(`payload`), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
