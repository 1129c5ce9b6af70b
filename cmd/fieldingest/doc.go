// Package main hosts the fieldingest CLI.
//
// The Cobra command tree drives one operator session per source folder
// through the workflow controller: parse the folder, review issues and
// renames, pick compression per bucket and submit the transcode job. Smaller
// commands expose the pieces on their own (folder name checks, bucket
// previews, rename previews, job listings and the local settings store).
//
// Keep this package thin. Session state and its rules live in
// internal/workflow; commands here only collect flags, prompt, and render.
package main
