// Package calibration runs the interactive localization test that
// personalizes binaural rendering.
//
// For each HRIR subject, a [Controller] picks a few preset azimuths
// ([SelectTrialAngles]), spatializes the stimulus at each preset, plays it
// and lets the operator steer a pointer to where the sound appeared to come
// from. Each confirmed answer becomes a [Trial]; the trials of all subjects
// form a [Session] that the estimate package turns into head parameters.
//
// The controller is synchronous. Operator input arrives through a
// [Commands] queue and audio leaves through a [Sink], so keyboards, button
// boxes, speakers and files are all handled outside this package.
package calibration
