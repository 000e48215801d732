package desktop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flashtoggle/flashtoggle/internal/desktop"
	"github.com/flashtoggle/flashtoggle/internal/desktop/desktoptest"
)

func TestNullBridgeIsSingleDesktop(t *testing.T) {
	var b desktop.Bridge = desktop.Null{}

	assert.True(t, b.IsOnCurrentDesktop(0x10))
	id, ok := b.DesktopID(0x10)
	assert.True(t, ok)
	cur, ok := b.CurrentDesktopID()
	assert.True(t, ok)
	assert.Equal(t, cur, id)
	assert.NoError(t, b.SwitchTo(id))
	assert.NoError(t, b.MoveToDesktop(0x10, id))
}

func TestFakeBridgeFailureDefaults(t *testing.T) {
	b := desktoptest.New("A")
	b.Place(0x10, "B")

	assert.False(t, b.IsOnCurrentDesktop(0x10))

	b.Fail(0x10, true)
	assert.True(t, b.IsOnCurrentDesktop(0x10), "unknown placement must report current")
	_, ok := b.DesktopID(0x10)
	assert.False(t, ok)
}
