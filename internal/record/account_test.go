package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESDecrypter_RoundTrip(t *testing.T) {
	dec, err := NewAESDecrypter("test-secret")
	require.NoError(t, err)

	nonce := make([]byte, 12)
	for i := range nonce {
		nonce[i] = byte(i)
	}
	sealed, err := dec.Seal("acct-42", nonce)
	require.NoError(t, err)

	plain, err := dec.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "acct-42", plain)
}

func TestAESDecrypter_RejectsGarbage(t *testing.T) {
	dec, err := NewAESDecrypter("test-secret")
	require.NoError(t, err)

	_, err = dec.Decrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = dec.Decrypt("YWJj") // valid base64, shorter than a nonce
	assert.Error(t, err)
}

func TestAccountFromResource_DecryptsID(t *testing.T) {
	dec, err := NewAESDecrypter("test-secret")
	require.NoError(t, err)
	nonce := make([]byte, 12)
	sealed, err := dec.Seal("acct-7", nonce)
	require.NoError(t, err)

	a := AccountFromResource(Resource{"account_id": sealed}, dec)
	require.NotNil(t, a)
	require.NotNil(t, a.AccountID)
	assert.Equal(t, "acct-7", *a.AccountID)
}

func TestAccountFromResource_DropsIDOnDecryptFailure(t *testing.T) {
	dec, err := NewAESDecrypter("test-secret")
	require.NoError(t, err)

	a := AccountFromResource(Resource{
		"account_id": "garbage-ciphertext",
		"extra":      map[string]interface{}{"plan": "pro"},
	}, dec)
	require.NotNil(t, a)
	assert.Nil(t, a.AccountID)
	// The rest of the account survives the dropped id.
	require.Len(t, a.Extra, 1)
}

func TestAccountFromResource_NilDecrypterPassesThrough(t *testing.T) {
	a := AccountFromResource(Resource{"account_id": "plain-id"}, nil)
	require.NotNil(t, a)
	require.NotNil(t, a.AccountID)
	assert.Equal(t, "plain-id", *a.AccountID)
}
