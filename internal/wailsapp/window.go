package wailsapp

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// window is the part of the Wails runtime the bindings use.
type window interface {
	Show()
	Hide()
	Quit()
}

// runtimeWindow drives the real Wails window. ctx must be the startup context.
type runtimeWindow struct {
	ctx context.Context
}

func (w runtimeWindow) Show() {
	runtime.WindowShow(w.ctx)
	runtime.WindowUnminimise(w.ctx)
}

func (w runtimeWindow) Hide() { runtime.WindowHide(w.ctx) }

func (w runtimeWindow) Quit() { runtime.Quit(w.ctx) }
