// Command storyforge compiles content folders into story packs, converts
// and extracts portable archives, and manages the pack registry on a device
// root.
package main
