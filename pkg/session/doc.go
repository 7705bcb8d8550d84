/*
Package session serializes access to persisted documents.

Loads and saves of the same path are ordered through a reference-counted
local lock and, when configured, a distributed lock shared by every process
writing to the same store.
*/
package session
