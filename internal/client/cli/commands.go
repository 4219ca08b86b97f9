package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/s3keeper/internal/client/client"
	"github.com/dmitrijs2005/s3keeper/internal/client/models"
	"github.com/dmitrijs2005/s3keeper/internal/common"
)

var errUsage = errors.New("usage")

func usage(s string) error {
	return fmt.Errorf("%w: %s", errUsage, s)
}

const helpText = `Profiles:  profiles, addprofile, rmprofile <id>, use <id|name>, passphrase, rotate
Buckets:   buckets [-r], mkbucket <name> [region], rmbucket <name>, bucket <name>
Objects:   cd <dir|..|/>, ls [-r], stat <key>, cat <key>, rm <key>...,
           cp <src> <dst>, mv <src> <dst>, rename <key> <new name>
Transfer:  upload <file>..., download <key> [path], abort <key> <upload id>
Other:     refresh, help, exit`

// Execute runs one REPL command.
func (a *App) Execute(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		fmt.Fprintln(a.out, helpText)
		return nil

	case "profiles":
		return a.listProfiles(ctx)
	case "addprofile":
		return a.addProfile(ctx)
	case "rmprofile":
		return a.removeProfile(ctx, args)
	case "use":
		return a.useProfile(ctx, args)
	case "passphrase":
		return a.setPassphrase(ctx)
	case "rotate":
		return a.rotate(ctx)

	case "buckets":
		return a.listBuckets(ctx, args)
	case "mkbucket":
		return a.createBucket(ctx, args)
	case "rmbucket":
		return a.deleteBucket(ctx, args)
	case "bucket":
		return a.selectBucket(ctx, args)

	case "cd":
		return a.changeDir(args)
	case "ls":
		return a.list(ctx, args)
	case "stat":
		return a.stat(ctx, args)
	case "cat":
		return a.cat(ctx, args)
	case "rm":
		return a.remove(ctx, args)
	case "cp", "mv":
		return a.copyOrMove(ctx, cmd, args)
	case "rename":
		return a.rename(ctx, args)

	case "upload":
		return a.upload(ctx, args)
	case "download":
		return a.download(ctx, args)
	case "abort":
		return a.abort(ctx, args)

	case "refresh":
		a.remote.Reset()
		fmt.Fprintln(a.out, "Cache cleared")
		return nil
	}
	return errUnknownCommand
}

// refreshFlag strips a leading -r and reports whether it was there.
func refreshFlag(args []string) (bool, []string) {
	if len(args) > 0 && args[0] == "-r" {
		return true, args[1:]
	}
	return false, args
}

// resolveKey makes name absolute: "/a/b" is taken from the bucket root,
// anything else is relative to the current directory.
func (a *App) resolveKey(name string) string {
	if strings.HasPrefix(name, "/") {
		return strings.TrimPrefix(name, "/")
	}
	return a.prefix + name
}

func parentDir(key string) string {
	key = strings.TrimSuffix(key, "/")
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return ""
	}
	return key[:i+1]
}

func (a *App) listProfiles(ctx context.Context) error {
	list, err := a.profiles.List(ctx)
	if err != nil {
		return err
	}
	activeID, err := a.profiles.ActiveID(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No profiles, use addprofile")
		return nil
	}

	for _, p := range list {
		marker := " "
		if p.ID == activeID {
			marker = "*"
		}
		where := p.Endpoint
		if where == "" {
			where = p.Region
		}
		fmt.Fprintf(a.out, "%s %s  %-20s %s\n", marker, p.ID, p.Name, where)
	}
	return nil
}

func (a *App) readSecret(prompt string) (string, error) {
	b, err := GetSecret(a.out, prompt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(b)
	return string(b), nil
}

func (a *App) addProfile(ctx context.Context) error {
	var p models.ConnectionProfile
	var err error

	if p.Name, err = GetSimpleText(a.reader, "Profile name", a.out); err != nil {
		return err
	}
	if p.AccessKeyID, err = GetSimpleText(a.reader, "Access key ID", a.out); err != nil {
		return err
	}
	if p.SecretAccessKey, err = a.readSecret("Secret access key"); err != nil {
		return err
	}
	if p.SessionToken, err = a.readSecret("Session token (empty for none)"); err != nil {
		return err
	}
	if p.Region, err = GetSimpleText(a.reader, "Region (empty for "+common.DefaultRegion+")", a.out); err != nil {
		return err
	}
	if p.Endpoint, err = GetSimpleText(a.reader, "Endpoint URL (empty for AWS)", a.out); err != nil {
		return err
	}
	if p.Bucket, err = GetSimpleText(a.reader, "Default bucket (optional)", a.out); err != nil {
		return err
	}

	added, err := a.profiles.Add(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Profile %s added\n", added.ID)

	if a.activeID == "" {
		if err := a.profiles.SetActive(ctx, added.ID); err != nil {
			return err
		}
		return a.activate(ctx)
	}
	return nil
}

func (a *App) removeProfile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rmprofile <id>")
	}
	if err := a.profiles.Delete(ctx, args[0]); err != nil {
		return err
	}
	if a.activeID == args[0] {
		return a.activate(ctx)
	}
	return nil
}

func (a *App) useProfile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("use <id|name>")
	}

	list, err := a.profiles.List(ctx)
	if err != nil {
		return err
	}
	id := args[0]
	for _, p := range list {
		if p.Name == args[0] {
			id = p.ID
			break
		}
	}

	if err := a.profiles.SetActive(ctx, id); err != nil {
		return err
	}
	if err := a.activate(ctx); err != nil {
		return err
	}
	if a.activeID != "" {
		fmt.Fprintf(a.out, "Using profile %s\n", a.activeName)
	}
	return nil
}

func (a *App) readNewPassphrase() (string, error) {
	p, err := a.readSecret("New master passphrase")
	if err != nil {
		return "", err
	}
	confirm, err := a.readSecret("Repeat passphrase")
	if err != nil {
		return "", err
	}
	if p != confirm {
		return "", errors.New("passphrases do not match")
	}
	return p, nil
}

func (a *App) setPassphrase(ctx context.Context) error {
	p, err := a.readNewPassphrase()
	if err != nil {
		return err
	}
	if err := a.passphrase.Set(ctx, p); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Passphrase set. Existing profiles stay encrypted with the old one, use rotate to re-encrypt them")
	return nil
}

func (a *App) rotate(ctx context.Context) error {
	p, err := a.readNewPassphrase()
	if err != nil {
		return err
	}
	n, err := a.profiles.Rotate(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Re-encrypted %d profile(s)\n", n)
	return a.activate(ctx)
}

func (a *App) listBuckets(ctx context.Context, args []string) error {
	refresh, _ := refreshFlag(args)
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	buckets, err := a.remote.ListBuckets(ctx, p, !refresh)
	if err != nil {
		return err
	}
	for _, b := range buckets {
		fmt.Fprintf(a.out, "%s  %s\n", b.CreationDate.Format("2006-01-02 15:04"), b.Name)
	}
	return nil
}

func (a *App) createBucket(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("mkbucket <name> [region]")
	}
	region := ""
	if len(args) == 2 {
		region = args[1]
	}
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	if err := a.remote.CreateBucket(ctx, p, args[0], region); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Bucket %s created\n", args[0])
	return nil
}

func (a *App) deleteBucket(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rmbucket <name>")
	}
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	if err := a.remote.DeleteBucket(ctx, p, args[0]); err != nil {
		return err
	}
	if a.bucket == args[0] {
		a.bucket, a.prefix = "", ""
	}
	fmt.Fprintf(a.out, "Bucket %s deleted\n", args[0])
	return nil
}

func (a *App) selectBucket(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("bucket <name>")
	}
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	ok, err := a.remote.HeadBucket(ctx, p, args[0], true)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s: %w", args[0], common.ErrorNotFound)
	}
	a.bucket, a.prefix = args[0], ""
	return nil
}

func (a *App) changeDir(args []string) error {
	if len(args) > 1 {
		return usage("cd <dir|..|/>")
	}
	switch {
	case len(args) == 0 || args[0] == "/":
		a.prefix = ""
	case args[0] == "..":
		a.prefix = parentDir(a.prefix)
	default:
		p := a.resolveKey(args[0])
		if !strings.HasSuffix(p, "/") {
			p += "/"
		}
		a.prefix = p
	}
	return nil
}

func (a *App) list(ctx context.Context, args []string) error {
	refresh, _ := refreshFlag(args)
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	in := models.ListObjectsInput{Bucket: a.bucket, Prefix: a.prefix, Delimiter: "/"}

	for {
		res, err := a.remote.ListObjects(ctx, p, in, !refresh)
		if err != nil {
			return err
		}
		for _, dir := range res.CommonPrefixes {
			fmt.Fprintf(a.out, "%10s  %16s  %s\n", "DIR", "", strings.TrimPrefix(dir, a.prefix))
		}
		for _, o := range res.Objects {
			if o.Key == a.prefix {
				continue
			}
			fmt.Fprintf(a.out, "%10d  %16s  %s\n", o.Size, o.LastModified.Format("2006-01-02 15:04"), strings.TrimPrefix(o.Key, a.prefix))
		}
		if !res.IsTruncated || res.NextContinuationToken == "" {
			return nil
		}
		in.ContinuationToken = res.NextContinuationToken
	}
}

func (a *App) stat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("stat <key>")
	}
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	m, err := a.remote.HeadObject(ctx, p, a.bucket, a.resolveKey(args[0]), true)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Key:           %s\n", m.Key)
	fmt.Fprintf(a.out, "Size:          %d\n", m.Size)
	fmt.Fprintf(a.out, "Last modified: %s\n", m.LastModified.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(a.out, "ETag:          %s\n", m.ETag)
	fmt.Fprintf(a.out, "Content type:  %s\n", m.ContentType)
	fmt.Fprintf(a.out, "Storage class: %s\n", m.StorageClass)
	return nil
}

func (a *App) cat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("cat <key>")
	}
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	text, err := a.remote.GetFileContent(ctx, p, a.bucket, a.resolveKey(args[0]), true)
	if errors.Is(err, client.ErrNotText) {
		return fmt.Errorf("%w, use download instead", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, text)
	return nil
}

func (a *App) remove(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("rm <key>...")
	}
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		return a.remote.DeleteObject(ctx, p, a.bucket, a.resolveKey(args[0]))
	}

	keys := make([]string, len(args))
	for i, k := range args {
		keys[i] = a.resolveKey(k)
	}
	failed, err := a.remote.DeleteObjects(ctx, p, a.bucket, keys)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %d of %d object(s)\n", len(keys)-len(failed), len(keys))
	for _, k := range failed {
		fmt.Fprintf(a.out, "  not deleted: %s\n", k)
	}
	return nil
}

func (a *App) copyOrMove(ctx context.Context, cmd string, args []string) error {
	if len(args) != 2 {
		return usage(cmd + " <src> <dst>")
	}
	src, dst := a.resolveKey(args[0]), a.resolveKey(args[1])
	if strings.HasSuffix(dst, "/") {
		dst += filepath.Base(src)
	}
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	if cmd == "mv" {
		return a.remote.MoveObject(ctx, p, a.bucket, src, dst)
	}
	return a.remote.CopyObject(ctx, p, a.bucket, src, dst)
}

func (a *App) rename(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("rename <key> <new name>")
	}
	oldKey := a.resolveKey(args[0])
	newKey := args[1]
	if !strings.Contains(newKey, "/") {
		newKey = parentDir(oldKey) + newKey
	} else {
		newKey = a.resolveKey(newKey)
	}
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	return a.remote.RenameObject(ctx, p, a.bucket, oldKey, newKey)
}

func (a *App) upload(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("upload <file>...")
	}
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	defer a.uploads.Clear()

	for _, path := range args {
		a.uploads.Enqueue(path, -1)
	}
	err = a.uploads.Run(ctx, p, a.bucket, a.prefix)

	var mpErr *client.MultipartError
	if errors.As(err, &mpErr) && mpErr.UploadID != "" {
		fmt.Fprintf(a.out, "Multipart upload left open, release it with: abort <key> %s\n", mpErr.UploadID)
	}
	return err
}

func (a *App) download(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("download <key> [path]")
	}
	key := a.resolveKey(args[0])
	local := filepath.Base(key)
	if len(args) == 2 {
		local = args[1]
	}
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	saved, err := a.remote.DownloadFile(ctx, p, a.bucket, key, local)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved to %s\n", saved)
	return nil
}

func (a *App) abort(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("abort <key> <upload id>")
	}
	p, err := a.profile(ctx)
	if err != nil {
		return err
	}
	return a.remote.AbortMultipartUpload(ctx, p, a.bucket, a.resolveKey(args[0]), args[1])
}
