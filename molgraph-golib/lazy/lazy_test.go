package lazy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_LoadError(t *testing.T) {
	var loadCount int
	loadErr := fmt.Errorf("some load error")

	load := func() error {
		loadCount++
		return loadErr
	}
	unload := func() {}

	loader := NewLoader(load, unload)

	err := loader.LoadAndLock()
	require.Error(t, err)
	require.Equal(t, loadErr, err)
	require.Equal(t, 1, loadCount)

	err = loader.LoadAndLock()
	require.Error(t, err)
	require.Equal(t, loadErr, err)
	require.Equal(t, 1, loadCount)

	loader.Unload()

	err = loader.LoadAndLock()
	require.Error(t, err)
	require.Equal(t, loadErr, err)
	require.Equal(t, 2, loadCount)
}

func Test_LoadOnce(t *testing.T) {
	var loadCount, unloadCount int

	loader := NewLoader(
		func() error {
			loadCount++
			return nil
		},
		func() {
			unloadCount++
		},
	)

	for i := 0; i < 3; i++ {
		require.NoError(t, loader.LoadAndLock())
		loader.Unlock()
	}
	require.Equal(t, 1, loadCount)

	loader.Unload()
	require.Equal(t, 1, unloadCount)

	require.NoError(t, loader.LoadAndLock())
	loader.Unlock()
	require.Equal(t, 2, loadCount)
}
