package confkit_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio-api/pkg/confkit"
)

func TestResolvePath(t *testing.T) {
	t.Setenv("CONFKIT_TEST_DIR", "expanded")

	tests := map[string]struct {
		base string
		file string
		want string
	}{
		"absolute":              {base: "/base", file: "/etc/app.yaml", want: "/etc/app.yaml"},
		"relative":              {base: "/base", file: "conf/app.yaml", want: "/base/conf/app.yaml"},
		"relative with env var": {base: "/base", file: "${CONFKIT_TEST_DIR}/app.yaml", want: "/base/expanded/app.yaml"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, confkit.ResolvePath(tc.base, tc.file))
		})
	}
}

func TestSectionHydrate(t *testing.T) {
	t.Run("no file configured", func(t *testing.T) {
		section := &confkit.Section[string]{}
		err := section.Hydrate("/base", func(string) (*string, error) {
			t.Fatal("loader must not run without a file")
			return nil, nil
		})
		require.NoError(t, err)
		assert.Nil(t, section.Value)
	})

	t.Run("relative file resolves against base", func(t *testing.T) {
		section := &confkit.Section[string]{File: "part.yaml"}
		value := "loaded"
		err := section.Hydrate("/base", func(path string) (*string, error) {
			assert.Equal(t, "/base/part.yaml", path)
			return &value, nil
		})
		require.NoError(t, err)
		require.NotNil(t, section.Value)
		assert.Equal(t, "loaded", *section.Value)
		assert.Equal(t, "/base/part.yaml", section.File)
	})

	t.Run("loader failure propagates", func(t *testing.T) {
		section := &confkit.Section[string]{File: "part.yaml"}
		boom := errors.New("boom")
		err := section.Hydrate("/base", func(string) (*string, error) {
			return nil, boom
		})
		require.ErrorIs(t, err, boom)
		assert.Nil(t, section.Value)
	})
}

func TestProjectRoot(t *testing.T) {
	root := confkit.MustProjectRoot()
	require.NotEmpty(t, root)
	assert.Equal(t, root+"/etc", confkit.MustProjectPath("etc"))
}
