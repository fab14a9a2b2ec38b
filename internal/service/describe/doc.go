// Package describe implements the describe command: it renders the update.xml
// an archive would be served with, without starting the server.
package describe
