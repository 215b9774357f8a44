// Package action provides update actions for the supervisor other than the
// built-in release updater.
package action
