// Command quire is the operator CLI for the quire scheduler daemon.
package main
