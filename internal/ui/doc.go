// Package ui contains the Bubble Tea program that powers the menu HUD.
// The Model type focuses on message orchestration, while dedicated helpers
// own navigation, filter input, rendering and activation results.
//
// Message flow:
//   - Bubble Tea invokes Model.Update with incoming messages, which are
//     routed through a typed handler registry so each tea.Msg is handled by a
//     focused function (key presses, resizes, activation results or backend
//     updates).
//   - Navigation helpers (navigation.go) move the cursor and hand the
//     selected entry to the command bus. Filter helpers (input.go) keep all
//     text entry concerns isolated from the event loop.
//
// State ownership:
//   - The list state lives in internal/ui/state.Level, which tracks entries,
//     filtering and viewport calculations.
//   - Activations run asynchronously through internal/ui/command so a slow
//     application never blocks rendering.
//
// Backend interactions:
//   - An optional backend.Watcher polls the menu model; Update waits for its
//     events and replaces the visible entries while keeping the cursor on the
//     same item.
package ui
