package classloader_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostmesh/hostrt/classloader"
	"github.com/hostmesh/hostrt/classregistry"
)

type component interface{ Name() string }
type widgetComponent struct{}

func (widgetComponent) Name() string { return "Widget" }

func registerWidget(r *classregistry.Registry) error {
	r.Register(classloader.BaseName[component](), "Widget", "a.so", func() any { return widgetComponent{} })
	return nil
}

func TestLoader_LoadCreateUnload(t *testing.T) {
	reg := classregistry.New(nil)
	l := classloader.New("a.so", reg, classloader.WithRegisterFunc(registerWidget))

	require.NoError(t, l.LoadLibrary())
	require.True(t, l.IsLibraryLoaded())

	h, err := classloader.CreateClassObj[component](l, "Widget")
	require.NoError(t, err)
	require.Equal(t, "Widget", h.Object.Name())

	// Unload while handle alive: warns, stays mapped.
	require.NoError(t, l.UnloadLibrary())
	require.True(t, l.IsLibraryLoaded())

	h.Release()
	require.NoError(t, l.UnloadLibrary())
	require.False(t, l.IsLibraryLoaded())
}

func TestLoader_CreateClassObjUnknownNameWarns(t *testing.T) {
	reg := classregistry.New(nil)
	l := classloader.New("a.so", reg, classloader.WithRegisterFunc(registerWidget))
	require.NoError(t, l.LoadLibrary())

	_, err := classloader.CreateClassObj[component](l, "DoesNotExist")
	require.Error(t, err)
}

func TestManager_LoadLibraryDedups(t *testing.T) {
	reg := classregistry.New(nil)
	mgr := classloader.NewManager(reg)

	l1, err := mgr.LoadLibrary("a.so", classloader.WithRegisterFunc(registerWidget))
	require.NoError(t, err)
	l2, err := mgr.LoadLibrary("a.so", classloader.WithRegisterFunc(registerWidget))
	require.NoError(t, err)
	require.Same(t, l1, l2)
}

func TestManager_CreateClassObjSearchesAllLoaders(t *testing.T) {
	reg := classregistry.New(nil)
	mgr := classloader.NewManager(reg)
	_, err := mgr.LoadLibrary("a.so", classloader.WithRegisterFunc(registerWidget))
	require.NoError(t, err)

	h, err := classloader.CreateClassObjFromManager[component](mgr, "Widget", "")
	require.NoError(t, err)
	require.Equal(t, "Widget", h.Object.Name())
}

func TestManager_GetValidClassNamesUnion(t *testing.T) {
	reg := classregistry.New(nil)
	mgr := classloader.NewManager(reg)
	_, err := mgr.LoadLibrary("a.so", classloader.WithRegisterFunc(registerWidget))
	require.NoError(t, err)

	names := classloader.GetValidClassNamesFromManager[component](mgr)
	require.Contains(t, names, "Widget")
}
