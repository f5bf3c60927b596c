// Package extract turns a portable archive back into an editable content
// folder: menus become directories, stories become audio files, announce
// assets come back out under the naming conventions the builder scans.
package extract
