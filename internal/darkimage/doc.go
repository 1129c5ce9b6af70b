// Package darkimage runs the two-stage dark image flow: detection over every
// bucket member, then colour-corrected samples of the flagged images. The
// sample job is only submitted once detection has completed.
package darkimage
