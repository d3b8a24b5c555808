package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/mikedegeofroy/minecraft-bot/internal/world"
	"github.com/mikedegeofroy/minecraft-bot/internal/world/sim"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"version": false, "sim": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %q subcommand to be registered", name)
		}
	}
}

func TestConsoleCommandQuit(t *testing.T) {
	w := sim.New("bot")
	defer w.Close()

	if !consoleCommand(w, "/quit") {
		t.Error("expected /quit to request exit")
	}
	if consoleCommand(w, "/pos") {
		t.Error("expected /pos to keep the console running")
	}
}

func TestConsoleCommandPlacesPlayer(t *testing.T) {
	w := sim.New("bot")
	defer w.Close()

	output := captureOutput(t, func() {
		consoleCommand(w, "/player alice 1 64 -2")
	})
	if !strings.Contains(output, "placed alice") {
		t.Fatalf("expected placement notice, got: %s", output)
	}

	pos, found, err := w.Locate(t.Context(), "alice")
	if err != nil || !found {
		t.Fatalf("expected alice to exist, found=%v err=%v", found, err)
	}
	if (pos != world.Position{X: 1, Y: 64, Z: -2}) {
		t.Errorf("unexpected position: %+v", pos)
	}
}

func TestConsoleCommandRejectsBadCoordinates(t *testing.T) {
	w := sim.New("bot")
	defer w.Close()

	output := captureOutput(t, func() {
		consoleCommand(w, "/player alice 1 sky -2")
	})
	if !strings.Contains(output, "bad coordinate") {
		t.Fatalf("expected coordinate error, got: %s", output)
	}
	if _, found, _ := w.Locate(t.Context(), "alice"); found {
		t.Error("expected alice not to be placed")
	}
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	rOut, wOut, _ := os.Pipe()
	os.Stdout = wOut

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		done <- buf.String()
	}()

	fn()

	_ = wOut.Close()
	os.Stdout = origOut
	return <-done
}
