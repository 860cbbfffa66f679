// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import "github.com/bassosimone/errclass"

// ErrClassifier classifies errors into categorical strings for analysis.
//
// Implementations map errors to short, descriptive labels (e.g., "ETIMEDOUT",
// "ECONNRESET") attached to structured log records. The Close event a failed
// read or write produces (§7, IOError) carries the unclassified error.
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
//
// This allows using simple functions as classifiers:
//
//	cfg.ErrClassifier = ErrClassifierFunc(errclass.New)
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier classifies errors using [errclass.New], the same
// dependency the teacher package imports for this purpose.
//
// Unlike a library that only observes connections it did not create, a
// debugger's whole purpose is telling the operator what happened on the
// wire, so this default is a working classifier rather than a no-op.
var DefaultErrClassifier = ErrClassifierFunc(errclass.New)
