package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sakif/resourcehub/internal/model"
	"github.com/sakif/resourcehub/internal/service"
)

func printIdentity(w io.Writer, ident service.Identity) {
	switch {
	case ident.Source == service.SourceAnonymous:
		fmt.Fprintln(w, "Not logged in.")
	case ident.Known():
		fmt.Fprintf(w, "Logged in as %s (id %d, %s).\n", ident.User.Name(), ident.User.ID, ident.Source)
		if ident.Degraded() {
			fmt.Fprintln(w, "(Guessed from your own resources: the server has no identity endpoint.)")
		}
	default:
		fmt.Fprintln(w, "Logged in, but the server did not say who you are.")
	}
}

func printResources(w io.Writer, resources []model.Resource, empty string) {
	if len(resources) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tBY\tLIKES\tCOMMENTS")
	for _, r := range resources {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.Type, r.Title, r.Author.Name(), len(r.Likes), len(r.Comments))
	}
	tw.Flush()
}

func printDetail(w io.Writer, snap service.DetailSnapshot) {
	r := snap.Resource
	if r == nil {
		fmt.Fprintln(w, snap.Error)
		return
	}

	fmt.Fprintf(w, "%s\n%s\n\n%s\n\n", r.Title, r.URL, r.Description)
	fmt.Fprintf(w, "%s by %s", r.Type, r.Author.Name())
	if len(r.Tags) > 0 {
		fmt.Fprintf(w, " · %s", strings.Join(r.Tags, ", "))
	}
	fmt.Fprintln(w)
	printLikeLine(w, snap)

	if len(r.Comments) == 0 {
		fmt.Fprintln(w, "\nNo comments yet.")
	} else {
		fmt.Fprintf(w, "\nComments (%d):\n", len(r.Comments))
		for _, c := range r.Comments {
			fmt.Fprintf(w, "  [%d] %s: %s\n", c.ID, c.Author.Name(), c.Text)
		}
	}

	if snap.Notice != "" {
		fmt.Fprintf(w, "\n%s\n", snap.Notice)
	}
}

func printLikeLine(w io.Writer, snap service.DetailSnapshot) {
	heart := "♡"
	if snap.Liked {
		heart = "♥"
	}
	line := fmt.Sprintf("%s %d", heart, snap.LikeCount)
	if snap.Provisional {
		line += " (saving…)"
	}
	fmt.Fprintln(w, line)
}
