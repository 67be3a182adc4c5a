package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/bnema/waykit/datadevice"
	"github.com/bnema/waykit/internal/config"
	"github.com/bnema/waykit/internal/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errEmptySelection = errors.New("selection is empty")

var clipboardCmd = &cobra.Command{
	Use:     "clipboard",
	Aliases: []string{"clip"},
	Short:   "Copy to and paste from the selection",
	Long: `Copy to and paste from the clipboard or the primary selection.

Compositors only share the selection with the focused client, so both
commands open a small window and wait for it to get keyboard focus.`,
}

var clipboardCopyCmd = &cobra.Command{
	Use:   "copy [text...]",
	Short: "Offer the arguments or stdin as the selection",
	Long: `Offer the arguments, or stdin when there are none, as the selection.

The data is served until another client takes the selection or the
command is interrupted.`,
	RunE: runCopy,
}

var clipboardPasteCmd = &cobra.Command{
	Use:   "paste",
	Short: "Write the selection to stdout",
	Args:  cobra.NoArgs,
	RunE:  runPaste,
}

func selectionMime(cmd *cobra.Command) string {
	mime, _ := cmd.Flags().GetString("mime")
	if mime == "" {
		mime = config.Get().Clipboard.DefaultMime
	}
	return mime
}

func copyPayload(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) > 0 {
		return []byte(strings.Join(args, " ")), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return data, nil
}

// servingSource writes data to every receiver from its own goroutine.
type servingSource struct {
	data      []byte
	g         *errgroup.Group
	served    int
	cancelled bool
}

func (s *servingSource) Send(mime string, w *datadevice.WritePipe) {
	s.served++
	logger.Debug("selection requested", "mime", mime, "bytes", len(s.data))
	s.g.Go(func() error {
		defer w.Close()
		if _, err := w.Write(s.data); err != nil && !errors.Is(err, syscall.EPIPE) {
			return fmt.Errorf("send %s: %w", mime, err)
		}
		return nil
	})
}

func (s *servingSource) Cancelled() {
	s.cancelled = true
}

func runCopy(cmd *cobra.Command, args []string) error {
	data, err := copyPayload(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	primary, _ := cmd.Flags().GetBool("primary")
	once, _ := cmd.Flags().GetBool("once")
	mime := selectionMime(cmd)
	ctx := cmd.Context()

	c, err := connect(ctx, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	f, err := openFocusWindow(c, "waykit copy")
	if err != nil {
		return err
	}
	defer f.Close()

	sel, err := attachSelection(c, f.seat, primary, nil)
	if err != nil {
		return err
	}
	defer sel.Release()

	serial, err := f.waitFocus(ctx)
	if err != nil {
		return err
	}

	var g errgroup.Group
	src := &servingSource{data: data, g: &g}
	if err := sel.publish(c, offeredMimes(mime), src, serial); err != nil {
		return fmt.Errorf("set selection: %w", err)
	}
	logger.Info("serving selection", "mime", mime, "bytes", len(data), "primary", primary)

	err = c.Loop().RunUntil(ctx, func() bool {
		return src.cancelled || f.Closed() || (once && src.served > 0)
	})
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return errors.Join(err, g.Wait(), c.Err())
}

func runPaste(cmd *cobra.Command, args []string) error {
	primary, _ := cmd.Flags().GetBool("primary")
	list, _ := cmd.Flags().GetBool("list")
	mime := selectionMime(cmd)
	ctx := cmd.Context()

	c, err := connect(ctx, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	f, err := openFocusWindow(c, "waykit paste")
	if err != nil {
		return err
	}
	defer f.Close()

	// the selection event arrives right before keyboard enter
	sel, err := attachSelection(c, f.seat, primary, nil)
	if err != nil {
		return err
	}
	defer sel.Release()

	if _, err := f.waitFocus(ctx); err != nil {
		return err
	}
	if err := c.Roundtrip(ctx); err != nil {
		return err
	}
	if sel.offer == nil {
		return errEmptySelection
	}

	out := cmd.OutOrStdout()
	if list {
		for _, m := range sel.offer.MimeTypes() {
			fmt.Fprintln(out, m)
		}
		return nil
	}

	m, err := pickMime(sel.offer.MimeTypes(), mime)
	if err != nil {
		return err
	}
	pipe, err := sel.offer.Receive(m)
	if err != nil {
		return fmt.Errorf("receive %s: %w", m, err)
	}
	defer pipe.Close()
	return receive(ctx, c.Loop(), pipe, out)
}

// poster is the part of the event loop receive needs.
type poster interface {
	Post(fn func() error)
	RunUntil(ctx context.Context, cond func() bool) error
}

// receive copies pipe to out while the loop keeps answering the compositor.
func receive(ctx context.Context, loop poster, pipe io.ReadCloser, out io.Writer) error {
	g, gctx := errgroup.WithContext(ctx)
	done := false
	g.Go(func() error {
		defer loop.Post(func() error {
			done = true
			return nil
		})
		if _, err := io.Copy(out, pipe); err != nil {
			return fmt.Errorf("read selection: %w", err)
		}
		return nil
	})
	stop := context.AfterFunc(gctx, func() { _ = pipe.Close() })
	defer stop()

	runErr := loop.RunUntil(gctx, func() bool { return done })
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func init() {
	rootCmd.AddCommand(clipboardCmd)
	clipboardCmd.AddCommand(clipboardCopyCmd)
	clipboardCmd.AddCommand(clipboardPasteCmd)

	clipboardCmd.PersistentFlags().Bool("primary", false, "Use the primary selection instead of the clipboard")
	clipboardCmd.PersistentFlags().String("mime", "", "Mime type (default from config, text/plain;charset=utf-8)")
	clipboardCopyCmd.Flags().Bool("once", false, "Exit after the first paste")
	clipboardPasteCmd.Flags().Bool("list", false, "List the offered mime types instead of pasting")
}
