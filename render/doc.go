// Package render spatializes separated stems with measured head-related
// impulse responses and mixes them to a binaural stereo signal.
//
// [Renderer.Apply] places one stem at an azimuth for a listener profile:
//
//	r := render.NewRenderer(catalog)
//	out, err := r.Apply(render.Mono("vocals", samples), -30, prof)
//
// The impulse responses of the profile's HRIR subject are stretched or
// compressed by effective_radius/8.5 before filtering, so a larger head
// hears proportionally longer interaural paths. [Renderer.RenderStems]
// applies every stem at its profile direction and [Mix] sums the results.
package render
