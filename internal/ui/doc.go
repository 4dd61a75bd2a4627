// Package ui contains the Bubble Tea program that drives the file manager and
// the save browser. The engine underneath is frame based: components expose
// Update(buttons) bool and never block, so the Model's job is to translate
// terminal events into that shape and draw what the components expose.
//
// Message flow:
//   - Key presses are mapped to input.Buttons and accumulated in Model.pressed.
//     Keys that have no button (quit, jump, copy link) are handled directly.
//   - A frame message arrives every FrameInterval. handleFrameMsg hands the
//     accumulated buttons to the active screen exactly once and clears them,
//     then schedules the next frame.
//   - When a worker asks a question through the keyboard broker, the next
//     frame opens a form (text prompt or yes/no). While a form is open key
//     presses go to the form, and frames keep polling the screens with no
//     buttons so listings and transfers keep landing.
//
// Screens:
//   - ScreenExplorer renders the two panels of internal/explorer and its
//     action menu.
//   - ScreenSaves renders the title list of internal/saves and, once a title
//     is opened, its local and cloud backup tabs.
//
// Overlays (toast, loading) are process-wide singletons in internal/overlay;
// the view reads them on every render.
package ui
