// Package all imports all available source adapters for side-effect registration.
//
// Import this package from your main to ensure all adapters are registered:
//   import _ "github.com/Vodeneev/propline/internal/collector/sources/all"
package all

import (
	_ "github.com/Vodeneev/propline/internal/collector/sources/httpfeed"
	_ "github.com/Vodeneev/propline/internal/collector/sources/redisfeed"
)
