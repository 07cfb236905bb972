// Package generator builds addon repositories, one release channel at a time.
//
// For each channel it reclaims the build marker, removes compiled Python
// leftovers, merges and packages every addon, then publishes addons.xml, its
// checksum and index.html. Failures are recorded in the run report instead of
// stopping the batch: a stage only runs when the stages it depends on succeeded.
package generator
