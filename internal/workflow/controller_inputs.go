package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fieldingest/internal/folder"
	"fieldingest/internal/jobapi"
	"fieldingest/internal/logging"
	"fieldingest/internal/services"
	"fieldingest/internal/settings"
)

func inputsError(message string, err error) error {
	if err == nil {
		err = ErrInputs
	} else {
		err = fmt.Errorf("%w: %w", ErrInputs, err)
	}
	return services.Wrap(services.ErrValidation, string(PhaseInputs), "check inputs", message, err)
}

// SetMode selects image or video ingest.
func (c *Controller) SetMode(mode jobapi.Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requirePhaseLocked("set mode", PhaseInputs); err != nil {
		return err
	}
	if !mode.Valid() {
		return inputsError(fmt.Sprintf("unsupported mode %q", mode), nil)
	}
	c.mode = mode
	c.counts = nil
	defer c.notify()
	return nil
}

// SetSourceFolder records the folder to ingest. The base name must follow
// DATE-OBSERVER; the observer code is taken from it unless one was set
// explicitly. An invalid name is kept so the operator can see it, and the
// parse error is returned.
func (c *Controller) SetSourceFolder(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requirePhaseLocked("set source folder", PhaseInputs); err != nil {
		return err
	}
	defer c.notify()
	c.sourceFolder = strings.TrimSpace(path)
	c.counts = nil
	name, err := folder.Parse(c.sourceFolder)
	if err != nil {
		c.folderName = folder.Name{}
		c.folderErr = err
		if !c.observerExplicit {
			c.observerCode = ""
		}
		return inputsError("source folder name is invalid", err)
	}
	c.folderName = name
	c.folderErr = nil
	if !c.observerExplicit {
		c.observerCode = name.Observer
	}
	return nil
}

// SetObserverCode overrides the observer code. An empty code reverts to the
// one in the folder name.
func (c *Controller) SetObserverCode(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requirePhaseLocked("set observer code", PhaseInputs); err != nil {
		return err
	}
	defer c.notify()
	code = strings.TrimSpace(code)
	if code == "" {
		c.observerExplicit = false
		c.observerCode = c.folderName.Observer
		return nil
	}
	c.observerExplicit = true
	c.observerCode = code
	return nil
}

// SetLocalOutputFolder sets where transcoded images are written.
func (c *Controller) SetLocalOutputFolder(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requirePhaseLocked("set local output folder", PhaseInputs); err != nil {
		return err
	}
	c.localOutput = strings.TrimSpace(path)
	c.notify()
	return nil
}

// SetReportDir sets where the transcode report is written.
func (c *Controller) SetReportDir(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requirePhaseLocked("set report dir", PhaseInputs); err != nil {
		return err
	}
	c.reportDir = strings.TrimSpace(path)
	c.notify()
	return nil
}

// SetMultiDay controls whether a successful submission keeps the session
// settings for the next folder.
func (c *Controller) SetMultiDay(enabled bool) {
	c.mu.Lock()
	c.multiDay = enabled
	c.mu.Unlock()
	c.notify()
}

// ChooseSourceFolder asks the picker for the source folder.
func (c *Controller) ChooseSourceFolder(ctx context.Context) (bool, error) {
	c.mu.Lock()
	key := settings.KeyOriginalImages
	if c.mode == jobapi.ModeVideo {
		key = settings.KeyOriginalVideos
	}
	current := c.sourceFolder
	c.mu.Unlock()

	path, err := c.pick(ctx, PathSource, key, current)
	if err != nil || path == "" {
		return false, err
	}
	if err := c.SetSourceFolder(path); err != nil {
		return true, err
	}
	if _, err := c.CountFiles(ctx); err != nil {
		logging.WarnWithContext(c.logger, "file count unavailable", "count_files_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "file counts are not shown"),
		)
	}
	return true, nil
}

// ChooseLocalOutputFolder asks the picker for the local output folder.
func (c *Controller) ChooseLocalOutputFolder(ctx context.Context) (bool, error) {
	c.mu.Lock()
	current := c.localOutput
	c.mu.Unlock()
	path, err := c.pick(ctx, PathLocalOutput, settings.KeyLocalOutput, current)
	if err != nil || path == "" {
		return false, err
	}
	return true, c.SetLocalOutputFolder(path)
}

// ChooseReportDir asks the picker for the report directory.
func (c *Controller) ChooseReportDir(ctx context.Context) (bool, error) {
	c.mu.Lock()
	current := c.reportDir
	c.mu.Unlock()
	path, err := c.pick(ctx, PathReportDir, settings.KeyReportDir, current)
	if err != nil || path == "" {
		return false, err
	}
	return true, c.SetReportDir(path)
}

func (c *Controller) pick(ctx context.Context, kind PathKind, key settings.Key, current string) (string, error) {
	if c.picker == nil {
		return "", services.Wrap(services.ErrConfiguration, string(PhaseInputs), "pick path", "no folder picker configured", nil)
	}
	defaultPath := current
	if defaultPath == "" && c.settings != nil {
		value, ok, err := c.settings.Get(ctx, string(key))
		if err != nil {
			c.logger.Debug("settings default unavailable", logging.String("key", string(key)), logging.Error(err))
		} else if ok {
			defaultPath = value
		}
	}
	path, err := c.picker.SelectPath(ctx, kind, defaultPath)
	if err != nil {
		return "", fmt.Errorf("select %s: %w", kind, err)
	}
	return strings.TrimSpace(path), nil
}

// CountFiles asks the backend how many images and videos the source folder
// holds and keeps the answer for the view.
func (c *Controller) CountFiles(ctx context.Context) (jobapi.FileCounts, error) {
	c.mu.Lock()
	dir := c.sourceFolder
	c.mu.Unlock()
	if dir == "" {
		return jobapi.FileCounts{}, inputsError("no source folder selected", nil)
	}
	counts, err := c.backend.CountFiles(ctx, dir)
	if err != nil {
		return jobapi.FileCounts{}, services.Wrap(services.ErrExternalTool, string(PhaseInputs), "count files", "File count failed", err)
	}
	c.mu.Lock()
	if c.sourceFolder == dir {
		c.counts = &counts
	}
	c.mu.Unlock()
	c.notify()
	return counts, nil
}

// CheckInputs is the guard for leaving the inputs phase.
func (c *Controller) CheckInputs() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkInputsLocked()
}

func (c *Controller) checkInputsLocked() error {
	var problems []error
	if !c.mode.Valid() {
		problems = append(problems, errors.New("select image or video mode"))
	}
	switch {
	case c.sourceFolder == "":
		problems = append(problems, errors.New("select a source folder"))
	case c.folderErr != nil:
		problems = append(problems, c.folderErr)
	}
	if c.observerCode == "" {
		problems = append(problems, errors.New("observer code is missing"))
	}
	if c.mode == jobapi.ModeImage {
		if c.localOutput == "" {
			problems = append(problems, errors.New("select a local output folder"))
		} else if err := checkWritableDir(c.localOutput); err != nil {
			problems = append(problems, err)
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return inputsError("inputs are incomplete", errors.Join(problems...))
}
