package workflow

import (
	"fieldingest/internal/folder"
	"fieldingest/internal/jobapi"
	"fieldingest/internal/media"
	"fieldingest/internal/rename"
)

// View recomputes the snapshot from the raw session state.
func (c *Controller) View() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Phase:             c.phase,
		Mode:              c.mode,
		SourceFolder:      c.sourceFolder,
		ObserverCode:      c.observerCode,
		LocalOutputFolder: c.localOutput,
		ReportDir:         c.reportDir,
		MultiDay:          c.multiDay,
		ParseJobID:        c.parseJobID,
		Parsing:           c.parsing,
		Parsed:            c.parsed,
		ParseProgress:     c.parseProgress,
		Ignored:           c.ignore.Codes(),
		Filter:            c.filter,
		Rulesets:          append(rename.Pipeline(nil), c.pipeline...),
		RenamesValidated:  c.renames.Validated(),
		Conflicts:         append([]rename.Conflict(nil), c.renames.Conflicts...),
		ConflictExamples:  c.renames.Examples(c.cfg.Workflow.ConflictExamples),
		SampleJobID:       c.sampleJobID,
		Sampling:          c.sampling,
		SampleProgress:    c.sampleProgress,
		Dark:              c.dark.State(),
		ColorCorrect:      c.colorCorrect,
		Submitting:        c.submitting,
		TranscodeJobID:    c.transcodeJobID,
		Notices:           make(map[string]string, len(c.notices)),
	}
	if c.folderErr != nil {
		snap.FolderError = c.folderErr.Error()
	} else if c.sourceFolder != "" && c.observerCode != "" {
		snap.CatalogFolder = folder.Name{Date: c.folderName.Date, Observer: c.observerCode}.CatalogFolder()
	}
	if c.counts != nil {
		counts := *c.counts
		snap.FileCounts = &counts
	}
	for slot, msg := range c.notices {
		snap.Notices[slot] = msg
	}

	validate := rename.Validator(c.cfg.Workflow.MaxNameLength)
	all := media.Derive(c.renames.Groups, c.ignore, "", validate)
	snap.IssueCounts = media.CountIssues(all)
	snap.TotalSize = media.TotalSize(all)
	snap.ItemCount = len(media.Items(all))
	snap.Blocked = media.Blocking(all) || !snap.RenamesValidated
	if c.filter == "" {
		snap.Groups = all
	} else {
		snap.Groups = media.Derive(c.renames.Groups, c.ignore, c.filter, validate)
	}

	if c.set != nil {
		for _, b := range c.set.Buckets() {
			snap.Buckets = append(snap.Buckets, BucketView{
				Name:             b.Name,
				BottomThreshold:  b.BottomThreshold,
				Count:            b.Len(),
				Selection:        b.Selection,
				TotalSize:        b.TotalSize(),
				EstimatedSavings: b.EstimatedSavings(),
				Representative:   c.representatives[b.Name],
				Samples:          append([]jobapi.SampleImage(nil), c.samples[b.Name]...),
				Resampling:       c.resampling[b.Name],
			})
		}
		snap.TotalSavings = c.set.TotalSavings()
	}
	return snap
}
