//go:build !unix

package filesystem

func isNoSpace(error) bool { return false }
