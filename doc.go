// Package blf decodes Vector Binary Log File (BLF) captures: a container
// format wrapping zlib-compressed runs of bus-trace objects (CAN, CAN FD,
// FlexRay, LIN, Ethernet, WLAN, and free-form application text) behind a
// two-level virtual address space.
//
// Open or OpenReader a capture to get a Session, then call Next
// repeatedly to walk its records in file order, or ReadAt to re-decode a
// record previously located by its VirtOffset.
package blf
