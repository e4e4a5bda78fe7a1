// Package georef synchronises a time-ordered point stream against a pose
// trajectory and emits motion-compensated records.
//
// A run has three phases. The coverage check reads only the first and last
// few records of the point file and confirms the trajectory spans them.
// The Synchronizer then walks both streams in a single forward pass,
// keeping a cursor on the bracketing pose pair and interpolating the rig
// position at each point's timestamp. Finally the Pipeline writes the
// corrected records to a temporary sibling of the destination and renames
// it into place, so a failed run never leaves partial output behind.
package georef
