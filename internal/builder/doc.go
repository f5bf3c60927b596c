// Package builder turns a content folder into a navigation graph. Folders
// become menus, audio files become stories, and the file naming conventions
// (numeric "NN-" ordering prefixes, "*.item.*" announce assets, "0-item.*"
// folder assets) drive ordering and menu presentation.
package builder
