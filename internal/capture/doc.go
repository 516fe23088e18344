// Package capture turns a screen selection into an OCR result.
//
// A Capturer grabs the pixels under a rectangle given in screen points. The
// Controller serializes capture sessions the way a hotkey-driven tool needs:
// repeated triggers inside the debounce window are dropped, a trigger while
// a session is running is rejected, tiny selections are treated as a
// cancelled drag, and a Standard run that finds nothing is repeated at High
// accuracy.
//
// # Coordinates
//
// Selections are expressed in screen points with a top-left origin. A
// Display maps points to pixels through its Scale (2 on a typical HiDPI
// screen). ClampToDisplay clips a selection to the display and converts it
// to pixel coordinates of the display image.
package capture
