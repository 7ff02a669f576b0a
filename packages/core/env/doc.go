// Package env builds the environment handed to test commands.
//
// Variables come from dotenv files and from the config file. Values may
// reference variables defined earlier in the same file, or the process
// environment, with ${NAME}.
package env
