package tts_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/ttstest"
)

func TestRegistry_GetAfterRegister(t *testing.T) {
	reg := tts.NewRegistry()
	for _, id := range []string{"openai", "polly", "voicevox"} {
		p := ttstest.New(id)
		_, err := reg.Register(p)
		require.NoError(t, err)

		got, ok := reg.Get(id)
		require.True(t, ok)
		assert.Same(t, p, got)
	}
}

func TestRegistry_GetMissing(t *testing.T) {
	reg := tts.NewRegistry()
	p, ok := reg.Get("nope")
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestRegistry_IDsAreCaseSensitive(t *testing.T) {
	reg := tts.NewRegistry()
	_, err := reg.Register(ttstest.New("OpenAI"))
	require.NoError(t, err)

	_, ok := reg.Get("openai")
	assert.False(t, ok)
}

func TestRegistry_ListKeepsRegistrationOrder(t *testing.T) {
	reg := tts.NewRegistry()
	for _, id := range []string{"zeta", "alpha", "mu"} {
		_, err := reg.Register(ttstest.New(id))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mu"}, reg.List())
	assert.Equal(t, 3, reg.Len())
}

func TestRegistry_DuplicateOverwritesInPlace(t *testing.T) {
	reg := tts.NewRegistry()
	first := ttstest.New("p")
	second := ttstest.New("p")

	prev, err := reg.Register(first)
	require.NoError(t, err)
	assert.Nil(t, prev)
	_, err = reg.Register(ttstest.New("q"))
	require.NoError(t, err)

	prev, err = reg.Register(second)
	require.NoError(t, err)
	assert.Same(t, first, prev)

	got, _ := reg.Get("p")
	assert.Same(t, second, got)
	assert.Equal(t, []string{"p", "q"}, reg.List())
}

func TestRegistry_RejectsEmptyID(t *testing.T) {
	reg := tts.NewRegistry()
	_, err := reg.Register(ttstest.New(""))
	assert.Error(t, err)
	_, err = reg.Register(nil)
	assert.Error(t, err)
	assert.Empty(t, reg.List())
}

func TestRegistry_ListIsSnapshot(t *testing.T) {
	reg := tts.NewRegistry()
	_, _ = reg.Register(ttstest.New("a"))
	ids := reg.List()
	ids[0] = "mutated"
	assert.Equal(t, []string{"a"}, reg.List())
}

func TestRegistry_ConcurrentRegisterAndGet(t *testing.T) {
	reg := tts.NewRegistry()
	prior := ttstest.New("p")
	_, err := reg.Register(prior)
	require.NoError(t, err)

	replacements := make([]*ttstest.Spy, 64)
	valid := map[tts.Provider]bool{prior: true}
	for i := range replacements {
		replacements[i] = ttstest.New("p")
		valid[replacements[i]] = true
	}

	var wg sync.WaitGroup
	errs := make(chan string, 1024)
	for i := 0; i < 64; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			_, _ = reg.Register(replacements[i])
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = reg.Register(ttstest.New(fmt.Sprintf("other-%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, ok := reg.Get("p")
				if !ok || !valid[got] {
					errs <- fmt.Sprintf("torn read: ok=%v provider=%v", ok, got)
					return
				}
				ids := reg.List()
				if len(ids) == 0 || ids[0] != "p" {
					errs <- fmt.Sprintf("unexpected list head: %v", ids)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
	assert.Equal(t, 65, reg.Len())
}
