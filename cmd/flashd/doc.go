// Package main is the flashd daemon entrypoint.
//
// flashd opens the flash controller control device, runs the
// after-recovery workers, journals every command it delivers, and
// serves manual commands and status over a Unix socket for flashctl.
package main
