// Package estimate turns calibration trials into head measurements and
// picks the reference HRIR subject closest to the listener.
//
// Two [Estimator] strategies are available. [Regression] maps the mean
// localization error linearly to head width, length and effective radius.
// [SphericalHeadModel] searches a grid of head sizes for the one whose
// interaural delays best explain the answers. [Classify] runs an estimator
// over every subject of a session and matches the result against a table
// of [Reference] heads.
package estimate
