package main

/*
#include <stdlib.h>
#include <dlfcn.h>
#include <sys/types.h>
#include <sys/stat.h>
#include <unistd.h>
#include <fcntl.h>
#include <dirent.h>

// guard is a true thread-local flag (not a Go-side approximation): set
// for the duration of one interception on this OS thread so that any
// nested call into an intercepted symbol on the same thread bypasses
// redirection and goes straight to the original function.
static __thread int guard = 0;

static int guard_enter(void) {
    if (guard) return 0;
    guard = 1;
    return 1;
}

static void guard_exit(void) {
    guard = 0;
}

typedef int (*open_fn)(const char*, int, ...);
typedef int (*openat_fn)(int, const char*, int, ...);
typedef int (*creat_fn)(const char*, mode_t);
typedef int (*stat_fn)(const char*, struct stat*);
typedef int (*lstat_fn)(const char*, struct stat*);
typedef int (*fstatat_fn)(int, const char*, struct stat*, int);
typedef int (*access_fn)(const char*, int);
typedef int (*faccessat_fn)(int, const char*, int, int);
typedef DIR* (*opendir_fn)(const char*);
typedef int (*mkdir_fn)(const char*, mode_t);
typedef int (*mkdirat_fn)(int, const char*, mode_t);
typedef int (*rmdir_fn)(const char*);
typedef int (*chdir_fn)(const char*);
typedef int (*unlink_fn)(const char*);
typedef int (*unlinkat_fn)(int, const char*, int);
typedef int (*rename_fn)(const char*, const char*);
typedef int (*renameat_fn)(int, const char*, int, const char*);
typedef int (*link_fn)(const char*, const char*);
typedef int (*linkat_fn)(int, const char*, int, const char*, int);
typedef int (*symlink_fn)(const char*, const char*);
typedef int (*symlinkat_fn)(const char*, int, const char*);
typedef ssize_t (*readlink_fn)(const char*, char*, size_t);
typedef ssize_t (*readlinkat_fn)(int, const char*, char*, size_t);
typedef int (*chmod_fn)(const char*, mode_t);
typedef int (*fchmodat_fn)(int, const char*, mode_t, int);
typedef int (*chown_fn)(const char*, uid_t, gid_t);
typedef int (*lchown_fn)(const char*, uid_t, gid_t);
typedef int (*fchownat_fn)(int, const char*, uid_t, gid_t, int);
typedef char* (*realpath_fn)(const char*, char*);
typedef int (*execve_fn)(const char*, char* const[], char* const[]);
typedef int (*execv_fn)(const char*, char* const[]);

static open_fn orig_open;
static openat_fn orig_openat;
static creat_fn orig_creat;
static stat_fn orig_stat;
static lstat_fn orig_lstat;
static fstatat_fn orig_fstatat;
static access_fn orig_access;
static faccessat_fn orig_faccessat;
static opendir_fn orig_opendir;
static mkdir_fn orig_mkdir;
static mkdirat_fn orig_mkdirat;
static rmdir_fn orig_rmdir;
static chdir_fn orig_chdir;
static unlink_fn orig_unlink;
static unlinkat_fn orig_unlinkat;
static rename_fn orig_rename;
static renameat_fn orig_renameat;
static link_fn orig_link;
static linkat_fn orig_linkat;
static symlink_fn orig_symlink;
static symlinkat_fn orig_symlinkat;
static readlink_fn orig_readlink;
static readlinkat_fn orig_readlinkat;
static chmod_fn orig_chmod;
static fchmodat_fn orig_fchmodat;
static chown_fn orig_chown;
static lchown_fn orig_lchown;
static fchownat_fn orig_fchownat;
static realpath_fn orig_realpath;
static execve_fn orig_execve;
static execv_fn orig_execv;

// resolve_originals runs as a shared-library constructor, before any
// application code (and before any exported symbol below) can run. This
// is phase one of the mandatory two-phase init: every original function
// pointer must be resolved before redirectConfig is ever read, because
// reading it (on the Go side) can itself perform path operations that
// would otherwise recurse into these very wrappers.
__attribute__((constructor))
static void resolve_originals(void) {
    orig_open = (open_fn)dlsym(RTLD_NEXT, "open");
    orig_openat = (openat_fn)dlsym(RTLD_NEXT, "openat");
    orig_creat = (creat_fn)dlsym(RTLD_NEXT, "creat");
    orig_stat = (stat_fn)dlsym(RTLD_NEXT, "stat");
    orig_lstat = (lstat_fn)dlsym(RTLD_NEXT, "lstat");
    orig_fstatat = (fstatat_fn)dlsym(RTLD_NEXT, "fstatat");
    orig_access = (access_fn)dlsym(RTLD_NEXT, "access");
    orig_faccessat = (faccessat_fn)dlsym(RTLD_NEXT, "faccessat");
    orig_opendir = (opendir_fn)dlsym(RTLD_NEXT, "opendir");
    orig_mkdir = (mkdir_fn)dlsym(RTLD_NEXT, "mkdir");
    orig_mkdirat = (mkdirat_fn)dlsym(RTLD_NEXT, "mkdirat");
    orig_rmdir = (rmdir_fn)dlsym(RTLD_NEXT, "rmdir");
    orig_chdir = (chdir_fn)dlsym(RTLD_NEXT, "chdir");
    orig_unlink = (unlink_fn)dlsym(RTLD_NEXT, "unlink");
    orig_unlinkat = (unlinkat_fn)dlsym(RTLD_NEXT, "unlinkat");
    orig_rename = (rename_fn)dlsym(RTLD_NEXT, "rename");
    orig_renameat = (renameat_fn)dlsym(RTLD_NEXT, "renameat");
    orig_link = (link_fn)dlsym(RTLD_NEXT, "link");
    orig_linkat = (linkat_fn)dlsym(RTLD_NEXT, "linkat");
    orig_symlink = (symlink_fn)dlsym(RTLD_NEXT, "symlink");
    orig_symlinkat = (symlinkat_fn)dlsym(RTLD_NEXT, "symlinkat");
    orig_readlink = (readlink_fn)dlsym(RTLD_NEXT, "readlink");
    orig_readlinkat = (readlinkat_fn)dlsym(RTLD_NEXT, "readlinkat");
    orig_chmod = (chmod_fn)dlsym(RTLD_NEXT, "chmod");
    orig_fchmodat = (fchmodat_fn)dlsym(RTLD_NEXT, "fchmodat");
    orig_chown = (chown_fn)dlsym(RTLD_NEXT, "chown");
    orig_lchown = (lchown_fn)dlsym(RTLD_NEXT, "lchown");
    orig_fchownat = (fchownat_fn)dlsym(RTLD_NEXT, "fchownat");
    orig_realpath = (realpath_fn)dlsym(RTLD_NEXT, "realpath");
    orig_execve = (execve_fn)dlsym(RTLD_NEXT, "execve");
    orig_execv = (execv_fn)dlsym(RTLD_NEXT, "execv");
}
*/
import "C"

import (
	"unsafe"
)

// withPath runs the common per-call contract for a single-path function:
// resolve the original pointer (handled in C), enter the recursion
// guard, compute the redirection, and return either the original or
// redirected C string the caller should pass through. call invokes the
// actual original libc function with whichever path wins.
func withPath(path *C.char, redirect func(string) string, call func(*C.char)) {
	if C.guard_enter() == 0 {
		call(path)
		return
	}
	defer C.guard_exit()

	initRedirect()
	goPath := C.GoString(path)
	if r := redirect(goPath); r != "" {
		cr := C.CString(r)
		defer C.free(unsafe.Pointer(cr))
		call(cr)
		return
	}
	call(path)
}

//export open
func open(path *C.char, flags C.int, mode C.mode_t) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_open != nil {
			ret = C.orig_open(p, flags, mode)
		}
	})
	return ret
}

//export openat
func openat(dirfd C.int, path *C.char, flags C.int, mode C.mode_t) C.int {
	var ret C.int = -1
	withPath(path, func(p string) string { return resolveAtPath(int(dirfd), p) }, func(p *C.char) {
		if C.orig_openat != nil {
			ret = C.orig_openat(dirfd, p, flags, mode)
		}
	})
	return ret
}

//export creat
func creat(path *C.char, mode C.mode_t) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_creat != nil {
			ret = C.orig_creat(p, mode)
		}
	})
	return ret
}

//export stat
func stat(path *C.char, buf *C.struct_stat) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_stat != nil {
			ret = C.orig_stat(p, buf)
		}
	})
	return ret
}

//export lstat
func lstat(path *C.char, buf *C.struct_stat) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_lstat != nil {
			ret = C.orig_lstat(p, buf)
		}
	})
	return ret
}

//export fstatat
func fstatat(dirfd C.int, path *C.char, buf *C.struct_stat, flags C.int) C.int {
	var ret C.int = -1
	withPath(path, func(p string) string { return resolveAtPath(int(dirfd), p) }, func(p *C.char) {
		if C.orig_fstatat != nil {
			ret = C.orig_fstatat(dirfd, p, buf, flags)
		}
	})
	return ret
}

//export access
func access(path *C.char, mode C.int) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_access != nil {
			ret = C.orig_access(p, mode)
		}
	})
	return ret
}

//export faccessat
func faccessat(dirfd C.int, path *C.char, mode C.int, flags C.int) C.int {
	var ret C.int = -1
	withPath(path, func(p string) string { return resolveAtPath(int(dirfd), p) }, func(p *C.char) {
		if C.orig_faccessat != nil {
			ret = C.orig_faccessat(dirfd, p, mode, flags)
		}
	})
	return ret
}

//export opendir
func opendir(path *C.char) *C.DIR {
	var ret *C.DIR
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_opendir != nil {
			ret = C.orig_opendir(p)
		}
	})
	return ret
}

//export mkdir
func mkdir(path *C.char, mode C.mode_t) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_mkdir != nil {
			ret = C.orig_mkdir(p, mode)
		}
	})
	return ret
}

//export mkdirat
func mkdirat(dirfd C.int, path *C.char, mode C.mode_t) C.int {
	var ret C.int = -1
	withPath(path, func(p string) string { return resolveAtPath(int(dirfd), p) }, func(p *C.char) {
		if C.orig_mkdirat != nil {
			ret = C.orig_mkdirat(dirfd, p, mode)
		}
	})
	return ret
}

//export rmdir
func rmdir(path *C.char) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_rmdir != nil {
			ret = C.orig_rmdir(p)
		}
	})
	return ret
}

//export chdir
func chdir(path *C.char) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_chdir != nil {
			ret = C.orig_chdir(p)
		}
	})
	return ret
}

//export unlink
func unlink(path *C.char) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_unlink != nil {
			ret = C.orig_unlink(p)
		}
	})
	return ret
}

//export unlinkat
func unlinkat(dirfd C.int, path *C.char, flags C.int) C.int {
	var ret C.int = -1
	withPath(path, func(p string) string { return resolveAtPath(int(dirfd), p) }, func(p *C.char) {
		if C.orig_unlinkat != nil {
			ret = C.orig_unlinkat(dirfd, p, flags)
		}
	})
	return ret
}

// twoPaths redirects oldpath and newpath independently, since they may
// refer to entirely different subtrees (rename/link across directories).
func twoPaths(oldpath, newpath *C.char, call func(*C.char, *C.char)) {
	if C.guard_enter() == 0 {
		call(oldpath, newpath)
		return
	}
	defer C.guard_exit()
	initRedirect()

	oldGo, newGo := C.GoString(oldpath), C.GoString(newpath)
	oldR, newR := redirectPath(oldGo), redirectPath(newGo)

	oldC, newC := oldpath, newpath
	if oldR != "" {
		oldC = C.CString(oldR)
		defer C.free(unsafe.Pointer(oldC))
	}
	if newR != "" {
		newC = C.CString(newR)
		defer C.free(unsafe.Pointer(newC))
	}
	call(oldC, newC)
}

//export rename
func rename(oldpath, newpath *C.char) C.int {
	var ret C.int = -1
	twoPaths(oldpath, newpath, func(o, n *C.char) {
		if C.orig_rename != nil {
			ret = C.orig_rename(o, n)
		}
	})
	return ret
}

//export renameat
func renameat(olddirfd C.int, oldpath *C.char, newdirfd C.int, newpath *C.char) C.int {
	var ret C.int = -1
	if C.guard_enter() == 0 {
		if C.orig_renameat != nil {
			ret = C.orig_renameat(olddirfd, oldpath, newdirfd, newpath)
		}
		return ret
	}
	defer C.guard_exit()
	initRedirect()

	oldR := resolveAtPath(int(olddirfd), C.GoString(oldpath))
	newR := resolveAtPath(int(newdirfd), C.GoString(newpath))
	oldC, newC := oldpath, newpath
	if oldR != "" {
		oldC = C.CString(oldR)
		defer C.free(unsafe.Pointer(oldC))
	}
	if newR != "" {
		newC = C.CString(newR)
		defer C.free(unsafe.Pointer(newC))
	}
	if C.orig_renameat != nil {
		ret = C.orig_renameat(olddirfd, oldC, newdirfd, newC)
	}
	return ret
}

//export link
func link(oldpath, newpath *C.char) C.int {
	var ret C.int = -1
	twoPaths(oldpath, newpath, func(o, n *C.char) {
		if C.orig_link != nil {
			ret = C.orig_link(o, n)
		}
	})
	return ret
}

//export linkat
func linkat(olddirfd C.int, oldpath *C.char, newdirfd C.int, newpath *C.char, flags C.int) C.int {
	var ret C.int = -1
	if C.guard_enter() == 0 {
		if C.orig_linkat != nil {
			ret = C.orig_linkat(olddirfd, oldpath, newdirfd, newpath, flags)
		}
		return ret
	}
	defer C.guard_exit()
	initRedirect()

	oldR := resolveAtPath(int(olddirfd), C.GoString(oldpath))
	newR := resolveAtPath(int(newdirfd), C.GoString(newpath))
	oldC, newC := oldpath, newpath
	if oldR != "" {
		oldC = C.CString(oldR)
		defer C.free(unsafe.Pointer(oldC))
	}
	if newR != "" {
		newC = C.CString(newR)
		defer C.free(unsafe.Pointer(newC))
	}
	if C.orig_linkat != nil {
		ret = C.orig_linkat(olddirfd, oldC, newdirfd, newC, flags)
	}
	return ret
}

// symlink redirects only the link's location, never its target: the
// target string is interpreted at resolution time by the kernel and is
// meaningful relative to whichever tree the link ends up in.
//
//export symlink
func symlink(target, linkpath *C.char) C.int {
	var ret C.int = -1
	withPath(linkpath, redirectPath, func(p *C.char) {
		if C.orig_symlink != nil {
			ret = C.orig_symlink(target, p)
		}
	})
	return ret
}

//export symlinkat
func symlinkat(target *C.char, newdirfd C.int, linkpath *C.char) C.int {
	var ret C.int = -1
	withPath(linkpath, func(p string) string { return resolveAtPath(int(newdirfd), p) }, func(p *C.char) {
		if C.orig_symlinkat != nil {
			ret = C.orig_symlinkat(target, newdirfd, p)
		}
	})
	return ret
}

//export readlink
func readlink(path *C.char, buf *C.char, bufsize C.size_t) C.ssize_t {
	var ret C.ssize_t = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_readlink != nil {
			ret = C.orig_readlink(p, buf, bufsize)
		}
	})
	return ret
}

//export readlinkat
func readlinkat(dirfd C.int, path *C.char, buf *C.char, bufsize C.size_t) C.ssize_t {
	var ret C.ssize_t = -1
	withPath(path, func(p string) string { return resolveAtPath(int(dirfd), p) }, func(p *C.char) {
		if C.orig_readlinkat != nil {
			ret = C.orig_readlinkat(dirfd, p, buf, bufsize)
		}
	})
	return ret
}

//export chmod
func chmod(path *C.char, mode C.mode_t) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_chmod != nil {
			ret = C.orig_chmod(p, mode)
		}
	})
	return ret
}

//export fchmodat
func fchmodat(dirfd C.int, path *C.char, mode C.mode_t, flags C.int) C.int {
	var ret C.int = -1
	withPath(path, func(p string) string { return resolveAtPath(int(dirfd), p) }, func(p *C.char) {
		if C.orig_fchmodat != nil {
			ret = C.orig_fchmodat(dirfd, p, mode, flags)
		}
	})
	return ret
}

//export chown
func chown(path *C.char, owner C.uid_t, group C.gid_t) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_chown != nil {
			ret = C.orig_chown(p, owner, group)
		}
	})
	return ret
}

//export lchown
func lchown(path *C.char, owner C.uid_t, group C.gid_t) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_lchown != nil {
			ret = C.orig_lchown(p, owner, group)
		}
	})
	return ret
}

//export fchownat
func fchownat(dirfd C.int, path *C.char, owner C.uid_t, group C.gid_t, flags C.int) C.int {
	var ret C.int = -1
	withPath(path, func(p string) string { return resolveAtPath(int(dirfd), p) }, func(p *C.char) {
		if C.orig_fchownat != nil {
			ret = C.orig_fchownat(dirfd, p, owner, group, flags)
		}
	})
	return ret
}

//export realpath
func realpath(path *C.char, resolved *C.char) *C.char {
	var ret *C.char
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_realpath != nil {
			ret = C.orig_realpath(p, resolved)
		}
	})
	return ret
}

// execve/execv redirect only the executable path; the REDIRECT_* and
// preload environment variables are passed through untouched (execve's
// envp for execve, the inherited environment for execv), so a child
// process that itself links this shim stays hooked.
//
//export execve
func execve(path *C.char, argv **C.char, envp **C.char) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_execve != nil {
			ret = C.orig_execve(p, argv, envp)
		}
	})
	return ret
}

//export execv
func execv(path *C.char, argv **C.char) C.int {
	var ret C.int = -1
	withPath(path, redirectPath, func(p *C.char) {
		if C.orig_execv != nil {
			ret = C.orig_execv(p, argv)
		}
	})
	return ret
}
