package qruntime_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qorerun/qcore/qruntime"
)

func TestParseOptionsSetHasClear(t *testing.T) {
	var p qruntime.ParseOptions
	require.False(t, p.Has(qruntime.OptStrictBoolean))
	p = p.Set(qruntime.OptStrictBoolean)
	require.True(t, p.Has(qruntime.OptStrictBoolean))
	require.False(t, p.Has(qruntime.OptNoThreads))
	p = p.Clear(qruntime.OptStrictBoolean)
	require.False(t, p.Has(qruntime.OptStrictBoolean))
}

func TestGlobalOptionsRoundTrip(t *testing.T) {
	qruntime.SetOptions(qruntime.OptNoIO | qruntime.OptNoNetwork)
	require.True(t, qruntime.Options().Has(qruntime.OptNoIO))
	require.True(t, qruntime.Options().Has(qruntime.OptNoNetwork))
	require.False(t, qruntime.Options().Has(qruntime.OptNoModules))
	qruntime.SetOptions(0)
}

func TestLogIsASingleton(t *testing.T) {
	l1 := qruntime.Log()
	l2 := qruntime.Log()
	require.Same(t, l1, l2)
}
