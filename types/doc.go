// Package types provides core types shared across the fleetassist packages.
// This package has ZERO dependencies on other fleetassist packages to avoid
// circular imports. All other packages should import types from here.
package types
