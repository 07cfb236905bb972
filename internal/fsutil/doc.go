// Package fsutil provides file system helpers shared by the publishers.
package fsutil
