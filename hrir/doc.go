// Package hrir indexes a directory of measured head-related impulse
// responses and serves them per (subject, azimuth).
//
// Records are named Subject_<id>_<azimuth>_0.<ext>, with <ext> either
// "wav" (stereo PCM, channel 0 left, channel 1 right) or "json":
//
//	{"hrir_left": [...], "hrir_right": [...], "sample_rate": 44100}
//
// Only elevation 0 is used. Every angle handed to [Catalog.Load] at render
// time should come from [Snap] or [Catalog.Snap], which map an arbitrary
// direction to the nearest measured azimuth.
package hrir
