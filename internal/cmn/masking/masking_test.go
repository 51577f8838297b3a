package masking

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasker(t *testing.T) {
	m := NewMasker("secret123", "se", "secret123-long", "secret123")
	assert.False(t, m.Empty())
	assert.Equal(t, "key=******* other=*******", m.MaskString("key=secret123 other=secret123-long"))
	assert.Equal(t, "se is short", m.MaskString("se is short"))
	assert.Equal(t, []byte("*******"), m.MaskBytes([]byte("secret123")))

	empty := NewMasker()
	assert.True(t, empty.Empty())
	assert.Equal(t, "secret123", empty.MaskString("secret123"))

	var nilMasker *Masker
	assert.Equal(t, "x", nilMasker.MaskString("x"))
}

func TestURLSecrets(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want []string
	}{
		{name: "Password", url: "postgres://churn:hunter22@db:5432/churn", want: []string{"hunter22"}},
		{name: "EscapedPassword", url: "postgres://churn:p%40ss%2Fword@db/churn", want: []string{"p@ss/word", "p%40ss%2Fword"}},
		{name: "NoPassword", url: "postgres://churn@db/churn"},
		{name: "SQLite", url: "sqlite:///data/churn_predictor.db"},
		{name: "BarePath", url: "data/churn.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, URLSecrets(tt.url))
		})
	}
}

func TestWriter(t *testing.T) {
	t.Run("SplitAcrossWrites", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf, NewMasker("secret123"))

		n, err := w.Write([]byte("the key is secr"))
		require.NoError(t, err)
		assert.Equal(t, 15, n)
		assert.Empty(t, buf.String())

		_, err = w.Write([]byte("et123\nnext: secret"))
		require.NoError(t, err)
		assert.Equal(t, "the key is *******\n", buf.String())

		_, err = w.Write([]byte("123"))
		require.NoError(t, err)
		require.NoError(t, w.Flush())
		assert.Equal(t, "the key is *******\nnext: *******", buf.String())

		require.NoError(t, w.Flush())
	})

	t.Run("PassThrough", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf, NewMasker())
		_, err := w.Write([]byte("partial"))
		require.NoError(t, err)
		assert.Equal(t, "partial", buf.String())
		require.NoError(t, w.Flush())
	})
}
