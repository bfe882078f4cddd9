// Package infra contains technical adapters: stores, distance providers,
// remote classifiers, event publishers, metrics sinks and the calendar
// exporter. These packages depend only on the interfaces defined in the
// core packages.
package infra
