// Package profile persists the personalized head profile produced by
// calibration and consumed by the renderer.
//
// A profile is a JSON document:
//
//	{
//	  "head_width": 15.2,
//	  "head_length": 19.0,
//	  "effective_radius": 8.5,
//	  "hrtf_subject": "003",
//	  "stem_directions": {"bass": 0, "vocals": 0, "drums": 0, "other": 0},
//	  "calibration_data": {"003": {"preset_angles": [-90, 0], "responses": [-85, 0]}},
//	  "timestamp": "2024-01-02 15:04:05"
//	}
//
// hrtf_subject and effective_radius are mandatory. [Store.Load] never fails:
// a document it cannot use is replaced by [Default] and the substitution is
// logged.
package profile
