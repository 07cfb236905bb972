// Package report collects typed outcomes of a generator run.
//
// Failures never stop the batch; instead every package and stage records a
// Status with a reason, and the aggregated Run is logged and optionally saved
// as YAML.
package report
