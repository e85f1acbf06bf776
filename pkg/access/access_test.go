package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenIsDeterministic(t *testing.T) {
	a := NewAccess("court-secret")
	b := NewAccess("court-secret")

	assert.NotEmpty(t, a.Token())
	assert.Equal(t, a.Token(), b.Token(), "both ends must derive the same token")
	assert.Len(t, a.Token(), 64) // 32 bytes hex encoded
}

func TestDifferentSecretsDiffer(t *testing.T) {
	a := NewAccess("court-secret")
	b := NewAccess("other-secret")
	assert.NotEqual(t, a.Token(), b.Token())
}

func TestVerify(t *testing.T) {
	a := NewAccess("court-secret")

	assert.True(t, a.Verify(NewAccess("court-secret").Token()))
	assert.False(t, a.Verify("forged"))
	assert.False(t, a.Verify(""))
}

func TestEmptySecretMeansNoToken(t *testing.T) {
	a := NewAccess("")
	assert.Empty(t, a.Token())
}
