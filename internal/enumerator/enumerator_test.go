package enumerator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/platform/platformtest"
)

func TestValidPredicate(t *testing.T) {
	tests := []struct {
		name string
		win  platformtest.Window
		want bool
	}{
		{
			name: "plain visible window",
			win:  platformtest.Window{Title: "Notes", Class: "Notepad", Style: platform.StyleVisible},
			want: true,
		},
		{
			name: "hidden window",
			win:  platformtest.Window{Title: "Notes", Class: "Notepad"},
			want: false,
		},
		{
			name: "blank title",
			win:  platformtest.Window{Title: "   ", Class: "Notepad", Style: platform.StyleVisible},
			want: false,
		},
		{
			name: "popup",
			win:  platformtest.Window{Title: "Menu", Class: "#32768", Style: platform.StyleVisible | platform.StylePopup},
			want: false,
		},
		{
			name: "shell tray",
			win:  platformtest.Window{Title: "Taskbar", Class: "Shell_TrayWnd", Style: platform.StyleVisible},
			want: false,
		},
		{
			name: "uwp frame host",
			win:  platformtest.Window{Title: "Settings", Class: "ApplicationFrameWindow", Style: platform.StyleVisible},
			want: false,
		},
		{
			name: "minimized window is still valid",
			win:  platformtest.Window{Title: "Mail", Class: "Mail", Style: platform.StyleVisible, Minimized: true},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := platformtest.New()
			b.Add(0x100, tt.win)
			e := New(b, nil, nil)

			got, err := e.Valid(0x100)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnumerateIsolatesFailures(t *testing.T) {
	b := platformtest.New()
	b.AddVisible(0x1, "Editor", "code.exe")
	b.Add(0x2, platformtest.Window{Title: "Broken", Class: "X", Style: platform.StyleVisible, TitleErr: errors.New("access denied")})
	b.Add(0x3, platformtest.Window{Title: "Crashy", Class: "X", Style: platform.StyleVisible, PanicOnStyle: true})
	b.AddVisible(0x4, "Browser", "firefox.exe")

	got, err := New(b, nil, nil).Enumerate()
	require.NoError(t, err)
	assert.Equal(t, []platform.Handle{0x1, 0x4}, got)
}

func TestEnumerateReportsListFailure(t *testing.T) {
	b := platformtest.New()
	b.EnumErr = errors.New("desktop locked")

	_, err := New(b, nil, nil).Enumerate()
	assert.Error(t, err)
}

func TestUpdateExcludedClasses(t *testing.T) {
	b := platformtest.New()
	b.Add(0x1, platformtest.Window{Title: "Overlay", Class: "NVIDIA GeForce Overlay", Style: platform.StyleVisible})
	e := New(b, nil, nil)

	ok, err := e.Valid(0x1)
	require.NoError(t, err)
	assert.True(t, ok)

	e.UpdateExcludedClasses([]string{"NVIDIA GeForce Overlay"})
	ok, err = e.Valid(0x1)
	require.NoError(t, err)
	assert.False(t, ok)

	b.Add(0x2, platformtest.Window{Title: "Desktop", Class: "Progman", Style: platform.StyleVisible})
	ok, err = e.Valid(0x2)
	require.NoError(t, err)
	assert.False(t, ok, "defaults survive an update")
}
