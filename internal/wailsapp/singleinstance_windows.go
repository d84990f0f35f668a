//go:build windows

// This file implements single-instance enforcement on Windows using a named mutex.
package wailsapp

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/chottu/chottu-desktop/internal/constants"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	findWindow    = user32.NewProc("FindWindowW")
	setForeground = user32.NewProc("SetForegroundWindow")
	showWindow    = user32.NewProc("ShowWindow")
	isIconic      = user32.NewProc("IsIconic")
)

const (
	// Mutex name for single-instance enforcement
	mutexName = "ChottuDesktop_SingleInstance_v1"

	swRestore = 9
	swShow    = 5
)

// singleInstanceMutex holds the mutex handle (kept alive for process lifetime)
var singleInstanceMutex windows.Handle

// EnsureSingleInstance checks if another instance is already running.
// Returns true if this is the first instance. If another instance exists its
// window is brought to the foreground, including when it is hidden.
func EnsureSingleInstance() bool {
	name, err := windows.UTF16PtrFromString(mutexName)
	if err != nil {
		return true
	}

	handle, err := windows.CreateMutex(nil, false, name)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		if handle != 0 {
			_ = windows.CloseHandle(handle)
		}
		bringExistingToForeground()
		return false
	}
	if err != nil {
		// Could not create the mutex; do not block startup over it.
		return true
	}

	singleInstanceMutex = handle
	return true
}

// bringExistingToForeground attempts to find and activate the existing window.
func bringExistingToForeground() {
	title, err := windows.UTF16PtrFromString(constants.AppName)
	if err != nil {
		return
	}
	hwnd, _, _ := findWindow.Call(0, uintptr(unsafe.Pointer(title)))
	if hwnd == 0 {
		return
	}

	if iconic, _, _ := isIconic.Call(hwnd); iconic != 0 {
		showWindow.Call(hwnd, swRestore)
	} else {
		showWindow.Call(hwnd, swShow)
	}
	setForeground.Call(hwnd)
}
